// internal/room/combat.go
package room

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/nbellerose/skirmish/internal/models"
)

const (
	// combatDamage is the fixed life cost of losing one exchange.
	combatDamage = 1

	// defaultMaxEscapeAttempts bounds evasion attempts per combat session.
	defaultMaxEscapeAttempts = 2

	baseEscapeChance = 30
	minEscapeChance  = 10
	maxEscapeChance  = 75
)

// CombatSession is the transient state of one attacker/defender engagement.
// At most one session is active per room at any time.
type CombatSession struct {
	ID                uuid.UUID `json:"id"`
	Attacker          string    `json:"attacker"`
	Defender          string    `json:"defender"`
	EscapeAttempts    int       `json:"escapeAttempts"`
	MaxEscapeAttempts int       `json:"maxEscapeAttempts"`
	EscapeChance      int       `json:"escapeChance"`
	Active            bool      `json:"active"`
}

// AttackResult describes one resolved exchange.
type AttackResult struct {
	Attacker      string `json:"attacker"`
	Defender      string `json:"defender"`
	AttackerRoll  int    `json:"attackerRoll"`
	DefenderRoll  int    `json:"defenderRoll"`
	AttackerTotal int    `json:"attackerTotal"`
	DefenderTotal int    `json:"defenderTotal"`
	Winner        string `json:"winner"`
	Loser         string `json:"loser"`
	Damage        int    `json:"damage"`

	// Ended is true when the exchange dropped the loser to zero life and the
	// session was terminated.
	Ended bool `json:"ended"`
}

// EvasionResult describes one evasion attempt.
type EvasionResult struct {
	Player       string `json:"player"`
	Roll         int    `json:"roll"`
	Chance       int    `json:"chance"`
	Success      bool   `json:"success"`
	AttemptsLeft int    `json:"attemptsLeft"`
}

// escapeChanceFor derives the evasion probability from the defender's speed.
func escapeChanceFor(speed int) int {
	chance := baseEscapeChance + 5*speed
	if chance < minEscapeChance {
		chance = minEscapeChance
	}
	if chance > maxEscapeChance {
		chance = maxEscapeChance
	}
	return chance
}

// StartCombat opens a combat session between two players of the room. It
// fails with ErrCombatActive, without touching the existing session, when a
// combat is already running.
func (reg *Registry) StartCombat(code, attacker, defender string) (*CombatSession, error) {
	r, err := reg.getRoom(code)
	if err != nil {
		return nil, err
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return nil, ErrRoomNotFound
	}
	if r.Combat != nil && r.Combat.Active {
		return nil, ErrCombatActive
	}
	if attacker == defender {
		return nil, fmt.Errorf("%w: a player cannot attack themselves", ErrPlayerNotFound)
	}
	att := r.playerByName(attacker)
	def := r.playerByName(defender)
	if att == nil || def == nil {
		return nil, ErrPlayerNotFound
	}

	id, _ := uuid.NewRandom()
	session := &CombatSession{
		ID:                id,
		Attacker:          attacker,
		Defender:          defender,
		MaxEscapeAttempts: defaultMaxEscapeAttempts,
		EscapeChance:      escapeChanceFor(def.Speed),
		Active:            true,
	}
	r.Combat = session

	r.fire(Event{Type: EventCombatStarted, Player: attacker, Target: defender,
		Payload: map[string]interface{}{
			"escapeChance":      session.EscapeChance,
			"maxEscapeAttempts": session.MaxEscapeAttempts,
		}})
	r.appendLog("combat", fmt.Sprintf("%s attacks %s", attacker, defender), attacker, defender)

	out := *session
	return &out, nil
}

// ActiveCombat returns a copy of the room's combat session, or
// ErrNoActiveCombat when none is running.
func (reg *Registry) ActiveCombat(code string) (*CombatSession, error) {
	r, err := reg.getRoom(code)
	if err != nil {
		return nil, err
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return nil, ErrRoomNotFound
	}
	if r.Combat == nil || !r.Combat.Active {
		return nil, ErrNoActiveCombat
	}
	out := *r.Combat
	return &out, nil
}

// Attack resolves one exchange of the active combat: both sides roll their
// assigned die, add their bonus, and the higher total wins. Ties favor the
// defender; the loser takes the fixed damage. When the loser's life reaches
// zero the session ends and the result is flagged accordingly.
func (reg *Registry) Attack(code string, attackerBonus, defenderBonus int) (*AttackResult, error) {
	r, err := reg.getRoom(code)
	if err != nil {
		return nil, err
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return nil, ErrRoomNotFound
	}
	if r.Combat == nil || !r.Combat.Active {
		return nil, ErrNoActiveCombat
	}

	att := r.playerByName(r.Combat.Attacker)
	def := r.playerByName(r.Combat.Defender)
	if att == nil || def == nil {
		return nil, ErrPlayerNotFound
	}

	atkRoll, err := reg.roller.Roll(1, int(att.AttackDie), attackerBonus)
	if err != nil {
		return nil, fmt.Errorf("attack roll: %w", err)
	}
	defRoll, err := reg.roller.Roll(1, int(def.DefenseDie), defenderBonus)
	if err != nil {
		return nil, fmt.Errorf("defense roll: %w", err)
	}

	result := &AttackResult{
		Attacker:      att.Name,
		Defender:      def.Name,
		AttackerRoll:  atkRoll.Rolls[0],
		DefenderRoll:  defRoll.Rolls[0],
		AttackerTotal: atkRoll.Total,
		DefenderTotal: defRoll.Total,
		Damage:        combatDamage,
	}

	// Ties go to the defender: only a strictly higher attack total lands.
	var loser *models.Player
	if atkRoll.Total > defRoll.Total {
		result.Winner, result.Loser = att.Name, def.Name
		loser = def
	} else {
		result.Winner, result.Loser = def.Name, att.Name
		loser = att
	}
	loser.Life -= combatDamage

	r.fire(Event{Type: EventCombatResult, Player: att.Name, Target: def.Name,
		Payload: map[string]interface{}{
			"attackerRoll":  result.AttackerRoll,
			"defenderRoll":  result.DefenderRoll,
			"attackerTotal": result.AttackerTotal,
			"defenderTotal": result.DefenderTotal,
			"winner":        result.Winner,
			"loser":         result.Loser,
		}})
	r.appendLog("combat", fmt.Sprintf("%s rolls %d+%d against %s's %d+%d: %s wins the exchange",
		att.Name, result.AttackerRoll, attackerBonus, def.Name, result.DefenderRoll, defenderBonus, result.Winner),
		att.Name, def.Name)

	if loser.Life <= 0 {
		r.endCombatLocked(result.Winner, result.Loser, "defeat")
		result.Ended = true
	}
	return result, nil
}

// AttemptEvasion lets the defender try to flee the active combat. One uniform
// percentage roll decides the attempt; once the session's maximum is spent,
// further attempts fail with ErrEvasionExhausted and the caller must resolve
// the combat by attacking.
func (reg *Registry) AttemptEvasion(code string) (*EvasionResult, error) {
	r, err := reg.getRoom(code)
	if err != nil {
		return nil, err
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return nil, ErrRoomNotFound
	}
	if r.Combat == nil || !r.Combat.Active {
		return nil, ErrNoActiveCombat
	}
	if r.Combat.EscapeAttempts >= r.Combat.MaxEscapeAttempts {
		return nil, ErrEvasionExhausted
	}

	roll, err := reg.roller.Roll(1, 100, 0)
	if err != nil {
		return nil, fmt.Errorf("evasion roll: %w", err)
	}

	r.Combat.EscapeAttempts++
	result := &EvasionResult{
		Player:       r.Combat.Defender,
		Roll:         roll.Total,
		Chance:       r.Combat.EscapeChance,
		Success:      roll.Total <= r.Combat.EscapeChance,
		AttemptsLeft: r.Combat.MaxEscapeAttempts - r.Combat.EscapeAttempts,
	}

	r.fire(Event{Type: EventEvasionAttempt, Player: result.Player,
		Payload: map[string]interface{}{
			"success":      result.Success,
			"attemptsLeft": result.AttemptsLeft,
		}})

	if result.Success {
		defender := r.Combat.Defender
		r.Combat = nil
		r.appendLog("evasion", fmt.Sprintf("%s escaped the combat", defender), defender)
		r.fire(Event{Type: EventCombatEnded, Player: defender,
			Payload: map[string]interface{}{"reason": "escape"}})
	} else {
		r.appendLog("evasion", fmt.Sprintf("%s failed to escape (%d attempts left)", result.Player, result.AttemptsLeft), result.Player)
	}
	return result, nil
}

// EndCombat terminates the active session once a side is defeated. The winner
// and loser must be the session's parties.
func (reg *Registry) EndCombat(code, winner, loser string) error {
	r, err := reg.getRoom(code)
	if err != nil {
		return err
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	if r.Combat == nil || !r.Combat.Active {
		return ErrNoActiveCombat
	}
	parties := map[string]bool{r.Combat.Attacker: true, r.Combat.Defender: true}
	if !parties[winner] || !parties[loser] || winner == loser {
		return fmt.Errorf("%w: %s/%s are not the combat parties", ErrPlayerNotFound, winner, loser)
	}
	r.endCombatLocked(winner, loser, "defeat")
	return nil
}

// endCombatLocked destroys the session and emits the terminal event. Assumes
// the lock is held and a session exists.
func (r *Room) endCombatLocked(winner, loser, reason string) {
	r.Combat = nil
	r.fire(Event{Type: EventCombatEnded, Player: winner, Target: loser,
		Payload: map[string]interface{}{"reason": reason}})
	r.appendLog("combat", fmt.Sprintf("combat ended: %s defeats %s (%s)", winner, loser, reason), winner, loser)
}
