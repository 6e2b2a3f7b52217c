package testutil

import (
	"github.com/udisondev/statustree/internal/stat"
	"github.com/udisondev/statustree/internal/statdef"
)

// ScenarioDefinition returns
//
//	Total(Multiply) [InGame(Add)[Base=1, Buff=0], OutGame(Multiply)[Basic=100, Level=1]]
//
// whose root evaluates to 100.
func ScenarioDefinition(name string) *statdef.Definition {
	d := statdef.New(name)
	total := d.AddNode(statdef.OperatorRecord("Total", stat.OpMultiply).WithConstraint(0, 1e6))
	inGame := d.AddNode(statdef.OperatorRecord("InGame", stat.OpAdd))
	outGame := d.AddNode(statdef.OperatorRecord("OutGame", stat.OpMultiply))
	base := d.AddNode(statdef.ValueRecord("Base", 1))
	buff := d.AddNode(statdef.ValueRecord("Buff", 0))
	basic := d.AddNode(statdef.ValueRecord("Basic", 100))
	level := d.AddNode(statdef.ValueRecord("Level", 1).WithConstraint(1, 80))

	d.AddChildToNode(total, inGame)
	d.AddChildToNode(total, outGame)
	d.AddChildToNode(inGame, base)
	d.AddChildToNode(inGame, buff)
	d.AddChildToNode(outGame, basic)
	d.AddChildToNode(outGame, level)
	d.Nodes[basic].Position = [2]float64{-120, 40}
	d.SetRootIndex(total)
	return d
}
