package model

import (
	"log/slog"
	"math"

	"github.com/udisondev/statustree/internal/stat"
)

// Well-known node keys of the character stat tree.
const (
	KeyTotal             = "Total"
	KeyInGame            = "InGame"
	KeyOutGame           = "OutGame"
	KeyBuffAll           = "BuffAll"
	KeyBuff              = "Buff"
	KeyDebuff            = "Debuff"
	KeyBasicAndEquipment = "BasicAndEquipment"
	KeyBasic             = "Basic"
	KeyEquipment         = "Equipment"
	KeyLevel             = "Level"
)

// DefaultBasicStat is the basic stat a character starts with.
const DefaultBasicStat = 100

// CharacterStat is the code-built stat tree of a Character:
//
//	Total    = InGame × OutGame                 (≥ 0)
//	InGame   = BuffAll = Buff − Debuff          (≥ 0.1)
//	OutGame  = (Basic + Equipment) × Level
type CharacterStat struct {
	*EntityStat[*Character]

	basic float64
}

// NewCharacterStat returns a CharacterStat ready for Setup.
func NewCharacterStat() *CharacterStat {
	c := &CharacterStat{}
	c.EntityStat = NewEntityStat[*Character](c)
	return c
}

// Prepare implements Preparer.
func (c *CharacterStat) Prepare(owner *Character) {
	c.basic = DefaultBasicStat
	if owner != nil && owner.BasicStat > 0 {
		c.basic = owner.BasicStat
	}
}

// MakeTree implements TreeMaker.
func (c *CharacterStat) MakeTree() (stat.Node, error) {
	root := stat.NewOperator(KeyTotal, stat.OpMultiply)
	inGame := stat.NewOperator(KeyInGame, stat.OpMultiply)
	outGame := stat.NewOperator(KeyOutGame, stat.OpMultiply)
	root.AddChild(inGame)
	root.AddChild(outGame)
	root.SetConstraint(0, math.Inf(1))

	buffAll := stat.NewOperator(KeyBuffAll, stat.OpSubtract)
	buffAll.AddChild(stat.NewValue(KeyBuff, 1))
	buffAll.AddChild(stat.NewValue(KeyDebuff, 0))
	buffAll.SetConstraint(0.1, math.Inf(1))
	inGame.AddChild(buffAll)

	basicAndEquipment := stat.NewOperator(KeyBasicAndEquipment, stat.OpAdd)
	basicAndEquipment.AddChild(stat.NewValue(KeyBasic, c.basic))
	basicAndEquipment.AddChild(stat.NewValue(KeyEquipment, 0))
	outGame.AddChild(basicAndEquipment)
	outGame.AddChild(stat.NewValue(KeyLevel, 1))

	return root, nil
}

func (c *CharacterStat) AddBuff(x float64)      { c.AddValueToNode(KeyBuff, x) }
func (c *CharacterStat) AddDebuff(x float64)    { c.AddValueToNode(KeyDebuff, x) }
func (c *CharacterStat) AddLevel(x float64)     { c.AddValueToNode(KeyLevel, x) }
func (c *CharacterStat) AddEquipment(x float64) { c.AddValueToNode(KeyEquipment, x) }

// OutGameValue is the part of the stat that persists between sessions.
func (c *CharacterStat) OutGameValue() float64 {
	return c.NodeValue(KeyOutGame)
}

// InGameValue is the bonus contributed by buffs and debuffs, scaled by the
// basic stat.
func (c *CharacterStat) InGameValue() float64 {
	return (c.NodeValue(KeyBuffAll) - 1) * c.basic
}

// LogStatus logs the aggregate values at debug level.
func (c *CharacterStat) LogStatus() {
	var name string
	if owner := c.Owner(); owner != nil {
		name = owner.Name
	}
	slog.Debug("character stat",
		"character", name,
		"total", c.Value(),
		"out_game", c.OutGameValue(),
		"in_game", c.InGameValue())
}
