// internal/bot/strategy.go
package bot

import (
	"github.com/nbellerose/skirmish/internal/models"
)

// Decision is the outcome of one virtual-player turn: either open combat
// against Target, or end the turn immediately.
type Decision struct {
	Attack bool
	Target string
}

// Strategy encapsulates a virtual player's turn policy behind a single
// decision function so each profile is independently testable.
type Strategy interface {
	Decide(self *models.Player, opponents []*models.Player) Decision
}

// StrategyFor maps a profile to its strategy. Unknown profiles fall back to
// the defensive policy.
func StrategyFor(profile models.BotProfile) Strategy {
	if profile == models.ProfileAggressive {
		return aggressiveStrategy{}
	}
	return defensiveStrategy{}
}

// aggressiveStrategy always attacks when a valid target is adjacent.
type aggressiveStrategy struct{}

func (aggressiveStrategy) Decide(self *models.Player, opponents []*models.Player) Decision {
	for _, opp := range opponents {
		if opp.Life > 0 && self.AdjacentTo(opp) {
			return Decision{Attack: true, Target: opp.Name}
		}
	}
	return Decision{}
}

// defensiveStrategy attacks only when the expected roll comparison favors it,
// otherwise it ends the turn.
type defensiveStrategy struct{}

func (defensiveStrategy) Decide(self *models.Player, opponents []*models.Player) Decision {
	for _, opp := range opponents {
		if opp.Life > 0 && self.AdjacentTo(opp) && favored(self, opp) {
			return Decision{Attack: true, Target: opp.Name}
		}
	}
	return Decision{}
}

// favored compares expected attack and defense rolls. A die with s sides has
// expectation (s+1)/2; comparing doubled expectations stays in integers.
func favored(attacker, defender *models.Player) bool {
	return int(attacker.AttackDie)+1 > int(defender.DefenseDie)+1
}
