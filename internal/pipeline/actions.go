package pipeline

import (
	"fmt"

	"github.com/fairwaylabs/caddie/internal/intent"
	"github.com/fairwaylabs/caddie/internal/persona"
	"github.com/fairwaylabs/caddie/internal/session"
	"github.com/fairwaylabs/caddie/internal/store"
)

// msgNoActiveRound is the user-visible, recoverable message for actions
// that need round context when none exists.
const msgNoActiveRound = "We haven't started a round yet — say \"start a round\" and I'll get things set up."

// execute performs the side effects of a routed intent and produces the
// assistant's reply text. ok is false when the action required an
// active round that is absent; text then carries the no-session
// message. Callers hold p.mu, so session mutations stay serialized.
func (p *Pipeline) execute(parsed intent.ParsedIntent) (text string, opts persona.Options, ok bool) {
	snap := p.session.Snapshot()
	ents := parsed.Entities
	opts.SensitiveInput = sensitive(&parsed)

	switch parsed.Type {
	case intent.TypeStartRound:
		return p.startRound(), opts, true

	case intent.TypeEndRound:
		if snap.Round == nil {
			return msgNoActiveRound, opts, false
		}
		if p.rounds != nil {
			if err := p.rounds.EndRound(snap.Round.ID); err != nil {
				p.logger.Warn("end round failed", "round_id", snap.Round.ID, "error", err)
			}
		}
		p.session.Clear()
		return "That's a wrap — round saved. Nice playing with you today.", opts, true

	case intent.TypeRecordShot:
		if snap.Round == nil {
			return msgNoActiveRound, opts, false
		}
		return p.recordShot(snap, ents), opts, true

	case intent.TypeRecordScore:
		if snap.Round == nil {
			return msgNoActiveRound, opts, false
		}
		if ents.ScoreContext != "" {
			return fmt.Sprintf("Got it — %s noted on the card.", ents.ScoreContext), opts, true
		}
		return "Got it — score noted on the card.", opts, true

	case intent.TypeAdvanceHole:
		if snap.Round == nil {
			return msgNoActiveRound, opts, false
		}
		return p.advanceHole(snap, ents), opts, true

	case intent.TypeClubRecommendation:
		opts.IncludePatterns = true
		rec := recommendation(ents)
		p.session.RecordRecommendation(rec)
		return rec, opts, true

	case intent.TypeHoleStrategy:
		opts.IncludePatterns = true
		strat := strategy(snap, ents)
		p.session.RecordRecommendation(strat)
		return strat, opts, true

	case intent.TypeAdjustClubDistance:
		if ents.Club != nil {
			return fmt.Sprintf("Let's look at your %s distances.", ents.Club.Name), opts, true
		}
		return "Let's look at your club distances.", opts, true

	case intent.TypeCheckWeather:
		return "Pulling up the conditions for you now.", opts, true

	case intent.TypeReportFatigue:
		if ents.Fatigue != nil {
			return fmt.Sprintf("Noted — you're at %d of 10. Take an extra club and swing easy coming in.", *ents.Fatigue), opts, true
		}
		return "Noted — take an extra club and swing easy coming in.", opts, true

	case intent.TypeReportPain:
		return "Noted. Don't push through anything sharp — ease off and see how it feels over the next couple of holes.", opts, true

	case intent.TypeRoundSummary:
		return "Here's how your rounds have been trending.", opts, true

	case intent.TypeMissPatterns:
		opts.IncludePatterns = true
		return "Here's what your recent misses look like.", opts, true

	case intent.TypeScoreQuery:
		if snap.Round == nil {
			return msgNoActiveRound, opts, false
		}
		return "Opening the card so you can see where you stand.", opts, true

	default: // TypeGeneralChat
		return "I'm here — shots, clubs, strategy, whatever you need.", opts, true
	}
}

func (p *Pipeline) startRound() string {
	round := session.Round{Course: "Today's round"}
	if p.rounds != nil {
		if created, err := p.rounds.CreateRound(round.Course); err == nil {
			round.ID = created.ID
			round.StartedAt = created.StartedAt
		} else {
			p.logger.Warn("create round failed", "error", err)
		}
	}
	p.session.Clear()
	p.session.UpdateRound(round)
	_ = p.session.UpdateHole(1)
	return "New round started — you're on the first tee. Play well out there."
}

func (p *Pipeline) recordShot(snap session.Context, ents intent.Entities) string {
	shot := session.Shot{Lie: ents.Lie}
	if ents.Club != nil {
		shot.Club = ents.Club.Name
	}

	hole := 1
	if snap.Hole != nil {
		hole = *snap.Hole
	}
	if ents.HoleNumber != nil {
		hole = *ents.HoleNumber
	}

	if p.rounds != nil {
		_, err := p.rounds.AddShot(snap.Round.ID, hole, store.Shot{
			Club: shot.Club,
			Lie:  shot.Lie,
		})
		if err != nil {
			p.logger.Warn("store shot failed", "round_id", snap.Round.ID, "error", err)
		}
	}
	p.session.RecordShot(shot)

	switch {
	case shot.Club != "" && shot.Lie != "":
		return fmt.Sprintf("Got it — logged your %s from the %s.", shot.Club, shot.Lie)
	case shot.Club != "":
		return fmt.Sprintf("Got it — logged your %s.", shot.Club)
	default:
		return "Got it — shot logged."
	}
}

func (p *Pipeline) advanceHole(snap session.Context, ents intent.Entities) string {
	next := 1
	if snap.Hole != nil {
		next = *snap.Hole + 1
	}
	if ents.HoleNumber != nil {
		next = *ents.HoleNumber
	}
	if err := p.session.UpdateHole(next); err != nil {
		return "That's the eighteenth — say \"end the round\" when you're done."
	}
	return fmt.Sprintf("On to hole %d.", next)
}

// recommendation picks a club from the yardage ladder and phrases the
// suggestion, folding in wind and lie when the user mentioned them.
func recommendation(ents intent.Entities) string {
	if ents.Club != nil && ents.Yardage == nil {
		return fmt.Sprintf("Your %s is a solid choice here — commit to it.", ents.Club.Name)
	}
	if ents.Yardage == nil {
		return "Tell me the yardage and I'll pick a club with you."
	}

	club := clubForYardage(*ents.Yardage)
	out := fmt.Sprintf("From %d yards, I'd take the %s.", *ents.Yardage, club)
	if ents.Wind != "" {
		out += fmt.Sprintf(" Factor in the wind (%s) — take one more club if it's into you.", ents.Wind)
	}
	if ents.Lie != "" && ents.Lie != "fairway" {
		out += fmt.Sprintf(" Off the %s, favor solid contact over distance.", ents.Lie)
	}
	return out
}

func strategy(snap session.Context, ents intent.Entities) string {
	hole := 0
	if ents.HoleNumber != nil {
		hole = *ents.HoleNumber
	} else if snap.Hole != nil {
		hole = *snap.Hole
	}
	if hole > 0 {
		return fmt.Sprintf("On hole %d, play to your stock shot: pick the widest landing area, aim away from trouble, and take your par chances from the fairway.", hole)
	}
	return "Pick the widest landing area, aim away from trouble, and take your par chances from the fairway."
}

// clubForYardage is a coarse carry-distance ladder used when the user
// hasn't set personal distances.
func clubForYardage(yards int) string {
	switch {
	case yards >= 230:
		return "Driver"
	case yards >= 210:
		return "3-Wood"
	case yards >= 195:
		return "5-Wood"
	case yards >= 180:
		return "4-Iron"
	case yards >= 170:
		return "5-Iron"
	case yards >= 160:
		return "6-Iron"
	case yards >= 150:
		return "7-Iron"
	case yards >= 140:
		return "8-Iron"
	case yards >= 130:
		return "9-Iron"
	case yards >= 115:
		return "Pitching Wedge"
	case yards >= 100:
		return "Gap Wedge"
	case yards >= 80:
		return "Sand Wedge"
	default:
		return "Lob Wedge"
	}
}
