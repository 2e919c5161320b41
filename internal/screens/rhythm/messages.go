package rhythm

import (
	"github.com/abhisek/learnloop/internal/screens/results"
	"github.com/abhisek/learnloop/internal/tempo"
)

// loopEventMsg carries one spawn or miss from the tempo loop.
type loopEventMsg struct {
	Event tempo.Event
}

// loopClosedMsg is sent once the loop's event channel is closed.
type loopClosedMsg struct{}

// finishedMsg is sent when the wrap-up (end session, save, assess) is done.
type finishedMsg struct {
	Result results.Result
}
