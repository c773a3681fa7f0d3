package engine

// DefaultSuit is returned by ChooseBestSuitForComputer when no fresh suit can be ranked.
const DefaultSuit = SuitSpades

// DrawTwoCount is the number of cards forced on the opponent by a played Two.
const DrawTwoCount = 2

// CanPlayCard reports whether card may be played on the current match state.
// It is total: a missing or malformed card is simply not playable, and a
// missing current suit or rank never matches.
func CanPlayCard(card Card, currentSuit Suit, currentRank Rank, jokerWasPlayed bool) bool {
	if !card.Valid() {
		return false
	}
	if card.IsJoker() || card.IsAce() || jokerWasPlayed {
		return true
	}
	if currentSuit != SuitNone && card.Suit == currentSuit {
		return true
	}
	return currentRank != RankNone && card.Rank == currentRank
}

// FindFirstPlayableIndex returns the index of the first playable card in hand
// order, or -1. No preference between regular and wild cards is applied.
func FindFirstPlayableIndex(hand []Card, match MatchState, jokerWasPlayed bool) int {
	for i, c := range hand {
		if CanPlayCard(c, match.Suit, match.Rank, jokerWasPlayed) {
			return i
		}
	}
	return -1
}

// HasPlayableCard reports whether any card in hand is playable.
func HasPlayableCard(hand []Card, match MatchState, jokerWasPlayed bool) bool {
	return FindFirstPlayableIndex(hand, match, jokerWasPlayed) >= 0
}

// ChooseBestSuitForComputer picks the suit the computer holds most of among
// the suits not yet chosen this game. Ties, including a hand with no regular
// cards, go to the earlier suit in ♠,♥,♦,♣ order. Once all four suits have
// been chosen it falls back to DefaultSuit, which is then a repeat.
func ChooseBestSuitForComputer(hand []Card, chosen SuitSet) Suit {
	var counts [SuitClubs + 1]int
	for _, c := range hand {
		if c.IsWild() || !c.Suit.IsReal() {
			continue
		}
		counts[c.Suit]++
	}

	best, bestCount := SuitNone, -1
	for _, s := range Suits {
		if chosen.Has(s) {
			continue
		}
		if counts[s] > bestCount {
			best, bestCount = s, counts[s]
		}
	}
	if best == SuitNone {
		return DefaultSuit
	}
	return best
}

// DetectWinner returns the side whose hand is empty. The player is checked
// first, so two empty hands report the player.
func DetectWinner(playerHand, computerHand []Card) Side {
	switch {
	case len(playerHand) == 0:
		return SidePlayer
	case len(computerHand) == 0:
		return SideComputer
	default:
		return SideNone
	}
}

// WildEffect describes what a played card demands of the turn controller.
type WildEffect struct {
	NeedsSuitSelection bool // Ace or Joker: the effective suit is open.
	DrawTwo            bool // Two: the opponent draws DrawTwoCount cards.
	ExtraPlay          bool // Joker: the same side plays again to settle the suit.
}

// ProcessWildEffect reports the special effect of playing card.
func ProcessWildEffect(card Card) WildEffect {
	switch {
	case card.IsJoker():
		return WildEffect{NeedsSuitSelection: true, ExtraPlay: true}
	case card.IsAce():
		return WildEffect{NeedsSuitSelection: true}
	case card.Valid() && card.Rank == RankTwo:
		return WildEffect{DrawTwo: true}
	default:
		return WildEffect{}
	}
}

// ExecuteDrawTwo moves up to count cards from deck onto hand. It never fails:
// an exhausted deck yields a short (possibly empty) draw.
func ExecuteDrawTwo(deck *Deck, hand []Card, count int) ([]Card, []Card) {
	if deck == nil || count <= 0 {
		return hand, nil
	}
	if count > deck.Len() {
		count = deck.Len()
	}
	drawn, _ := deck.Draw(count)
	return append(hand, drawn...), drawn
}
