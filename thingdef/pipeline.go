package thingdef

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/chazu/thingdef/actor"
	"github.com/chazu/thingdef/compiler"
)

// Phase names the checkpoint at which a run was aborted.
type Phase int

const (
	PhaseParse Phase = iota
	PhaseFinalize
)

func (p Phase) String() string {
	if p == PhaseFinalize {
		return "finalize"
	}
	return "parse"
}

// FatalError aborts a compilation run at a phase boundary.
type FatalError struct {
	Phase Phase
	Count int
}

func (e *FatalError) Error() string {
	if e.Phase == PhaseFinalize {
		return fmt.Sprintf("%d errors during actor postprocessing", e.Count)
	}
	return fmt.Sprintf("%d errors while parsing DECORATE scripts", e.Count)
}

//go:embed prelude.txt
var preludeText string

// Prelude returns the declarations of the engine classes and their native
// actions. RunCompilation parses it ahead of the user sources.
func Prelude() compiler.Source {
	return compiler.Source{Name: "prelude", Text: preludeText}
}

// RunCompilation compiles sources into a fresh class universe. It returns a
// *FatalError when the declaration pass or FinalizeAll reports errors;
// everything collected so far stays in Diag.
func (c *Context) RunCompilation(sources []compiler.Source) error {
	start := time.Now()
	c.Reset()
	log.Infof("run %s: compiling %d sources", c.RunID, len(sources))
	if c.Dump != nil {
		if err := c.Dump.Begin(c.RunID); err != nil {
			log.Warningf("dump: %s", err)
		}
	}

	c.ParseSource(Prelude())
	for _, src := range sources {
		c.ParseSource(src)
	}
	if n := c.Diag.ErrorCount(); n > 0 {
		return &FatalError{Phase: PhaseParse, Count: n}
	}

	if n := c.FinalizeAll(); n > 0 {
		return &FatalError{Phase: PhaseFinalize, Count: n}
	}

	c.initQuestItems()
	log.Infof("DECORATE parsing took %.2f ms", float64(time.Since(start).Microseconds())/1000)
	return nil
}

// NumQuestItems is the size of the quest item table.
const NumQuestItems = 31

func (c *Context) initQuestItems() {
	for i := range c.questItems {
		c.questItems[i] = c.Registry.FindActor(fmt.Sprintf("QuestItem%d", i+1))
	}
}

// QuestItem returns the class QuestItem<n> for n in 1..NumQuestItems, or
// nil when it is out of range or was not declared.
func (c *Context) QuestItem(n int) *actor.Class {
	if n < 1 || n > NumQuestItems {
		return nil
	}
	return c.questItems[n-1]
}
