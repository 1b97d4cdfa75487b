// internal/bot/controller.go
package bot

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/nbellerose/skirmish/internal/models"
	"github.com/nbellerose/skirmish/internal/room"
)

// virtualNames is the pool of display names for virtual players. The room
// registry suffixes on collision, so exhaustion of the pool is harmless.
var virtualNames = []string{
	"Astra", "Borin", "Cyra", "Dorn", "Edda", "Finn", "Gale", "Hux",
}

// Controller spawns and drives virtual players. It goes through the same
// registry contracts as human players: joining, attacking and ending turns
// are the exact same operations a socket would trigger.
type Controller struct {
	registry *room.Registry
}

// NewController returns a Controller bound to the registry.
func NewController(registry *room.Registry) *Controller {
	return &Controller{registry: registry}
}

// AddVirtualPlayer synthesizes a bot with profile-biased stats and joins it
// to the room.
func (c *Controller) AddVirtualPlayer(code string, profile models.BotProfile) (*models.Player, error) {
	p := models.NewPlayer(c.pickName(code))
	p.Virtual = true
	p.Profile = profile
	switch profile {
	case models.ProfileAggressive:
		p.AttackDie = models.D6
		p.DefenseDie = models.D4
		p.Speed = 6
	case models.ProfileDefensive:
		p.AttackDie = models.D4
		p.DefenseDie = models.D6
		p.Life = 6
	default:
		return nil, fmt.Errorf("unknown virtual player profile %q", profile)
	}

	joined, err := c.registry.Join(code, p, "")
	if err != nil {
		return nil, err
	}
	log.Infof("virtual player %s (%s) joined room %s", joined.Name, profile, code)
	return joined, nil
}

// RemoveVirtualPlayer removes a bot from the room. Removing a human player
// through this path is rejected.
func (c *Controller) RemoveVirtualPlayer(code, name string) error {
	players, err := c.registry.ActivePlayers(code)
	if err != nil {
		return err
	}
	for _, p := range players {
		if p.Name == name {
			if !p.Virtual {
				return fmt.Errorf("player %s is not a virtual player", name)
			}
			return c.registry.Leave(code, name)
		}
	}
	return room.ErrPlayerNotFound
}

// PlayTurn runs one full turn for the named virtual player: the strategy
// picks a target and the bot either fights one exchange or passes. The
// gateway calls this when a turn-changed event names a bot.
func (c *Controller) PlayTurn(code, name string) error {
	players, err := c.registry.ActivePlayers(code)
	if err != nil {
		return err
	}

	var self *models.Player
	opponents := make([]*models.Player, 0, len(players))
	for _, p := range players {
		if p.Name == name {
			self = p
		} else {
			opponents = append(opponents, p)
		}
	}
	if self == nil {
		return room.ErrPlayerNotFound
	}
	if !self.Virtual {
		return fmt.Errorf("player %s is not a virtual player", name)
	}

	decision := StrategyFor(self.Profile).Decide(self, opponents)
	if decision.Attack {
		if _, err := c.registry.StartCombat(code, name, decision.Target); err != nil {
			log.Warnf("virtual player %s could not start combat in room %s: %v", name, code, err)
		} else {
			// Each exchange damages the losing side, so the session always
			// terminates within the combatants' combined life.
			for {
				res, err := c.registry.Attack(code, 0, 0)
				if err != nil {
					log.Warnf("virtual player %s attack failed in room %s: %v", name, code, err)
					break
				}
				if res.Ended {
					break
				}
			}
		}
	}

	_, err = c.registry.EndTurn(code)
	return err
}

// pickName returns the first pool name not already present in the room.
func (c *Controller) pickName(code string) string {
	taken := map[string]bool{}
	if players, err := c.registry.ActivePlayers(code); err == nil {
		for _, p := range players {
			taken[p.Name] = true
		}
	}
	for _, name := range virtualNames {
		if !taken[name] {
			return name
		}
	}
	return virtualNames[0]
}
