// Command play is a terminal client that plays Crazy Aces against the
// computer locally.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/jason-s-yu/crazyaces/engine"
	"github.com/jason-s-yu/crazyaces/internal/game"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"
)

func main() {
	handSize := flag.Int("hand", engine.DefaultHandSize, "cards dealt to each side")
	delay := flag.Duration("delay", 500*time.Millisecond, "pause between computer moves")
	seed := flag.Uint64("seed", 0, "deterministic deal seed (0 = random)")
	verbose := flag.Bool("v", false, "log game internals")
	flag.Parse()

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	var rng *rand.Rand
	if *seed != 0 {
		rng = rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	}

	g := game.NewAcesGame("local", game.Options{
		HandSize:  *handSize,
		StepDelay: *delay,
		RNG:       rng,
		Log:       logrus.NewEntry(log),
	})
	g.BroadcastFn = narrate

	pterm.DefaultHeader.WithFullWidth().Println("Crazy Aces")
	pterm.Info.Println("Match the suit or rank. Aces are wild, Jokers let you play again, a Two makes your opponent draw two.")

	if err := loop(context.Background(), g); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func loop(ctx context.Context, g *game.AcesGame) error {
	for {
		st := g.State()
		render(st)

		switch st.Phase {
		case engine.PhaseGameOver.String():
			again, err := pterm.DefaultInteractiveConfirm.WithDefaultText("Play again?").WithDefaultValue(true).Show()
			if err != nil || !again {
				pterm.Info.Printfln("Final streak: %d after %d games.", st.WinStreak, st.GamesPlayed)
				return nil
			}
			_ = g.Reset(ctx)

		case engine.PhaseAwaitingSuit.String():
			options := append(symbols(st.AvailableSuits), "Cancel")
			choice, err := pterm.DefaultInteractiveSelect.WithDefaultText("Choose a suit for your Ace").WithOptions(options).Show()
			if err != nil {
				return err
			}
			if choice == "Cancel" {
				_ = g.CancelSuit(ctx)
				continue
			}
			_ = g.ChooseSuit(ctx, engine.ParseSuit(choice))

		default:
			labels := make([]string, 0, len(st.PlayableIdx)+2)
			byLabel := make(map[string]int, len(st.PlayableIdx))
			for _, idx := range st.PlayableIdx {
				label := fmt.Sprintf("Play %s", cardLabel(st.PlayerHand[idx]))
				if _, dup := byLabel[label]; dup {
					label = fmt.Sprintf("%s (#%d)", label, idx+1)
				}
				byLabel[label] = idx
				labels = append(labels, label)
			}
			labels = append(labels, "Draw", "Forfeit", "Quit")

			choice, err := pterm.DefaultInteractiveSelect.WithDefaultText("Your move").WithOptions(labels).WithMaxHeight(12).Show()
			if err != nil {
				return err
			}
			switch choice {
			case "Quit":
				return nil
			case "Draw":
				_ = g.DrawCard(ctx)
			case "Forfeit":
				_ = g.Forfeit(ctx)
			default:
				_ = g.PlayCard(ctx, byLabel[choice])
			}
		}
	}
}

func render(st game.ObfGameState) {
	top := "none"
	if st.DiscardTop != nil {
		top = cardLabel(*st.DiscardTop)
	}
	match := suitSymbol(st.CurrentSuit) + " " + st.CurrentRank
	if st.JokerWasPlayed {
		match = pterm.LightMagenta("anything goes")
	}

	table := pterm.DefaultBox.WithTitle("Table").WithTitleTopLeft().WithHorizontalPadding(2).Sprintf(
		"Top card: %s\nTo match: %s\nDeck: %d   Computer holds: %d",
		pterm.Bold.Sprint(top), match, st.DeckSize, st.ComputerHandSize)

	cards := make([]string, len(st.PlayerHand))
	playable := make(map[int]bool, len(st.PlayableIdx))
	for _, i := range st.PlayableIdx {
		playable[i] = true
	}
	for i, c := range st.PlayerHand {
		label := cardLabel(c)
		if playable[i] {
			label = pterm.LightGreen(label)
		} else {
			label = pterm.Gray(label)
		}
		cards[i] = label
	}
	hand := pterm.DefaultBox.WithTitle("Your hand").WithTitleTopLeft().WithHorizontalPadding(2).Sprintf(
		"%s\nStreak: %d   Games: %d", strings.Join(cards, "  "), st.WinStreak, st.GamesPlayed)

	pterm.DefaultPanel.WithPanels([][]pterm.Panel{{{Data: table}, {Data: hand}}}).Render()
}

// narrate prints the game's events as they happen.
func narrate(ev game.GameEvent) {
	switch ev.Type {
	case game.EventComputerPlay:
		msg := "Computer plays " + cardLabel(*ev.Card)
		if ev.Card.Rank == engine.RankAce.String() {
			msg += " and calls " + suitSymbol(ev.Suit)
		}
		pterm.Warning.Println(msg)
	case game.EventComputerDraw:
		pterm.Warning.Println("Computer draws a card")
	case game.EventComputerPass:
		pterm.Warning.Println("Computer passes")
	case game.EventForcedDraw:
		if ev.Side == engine.SidePlayer.String() {
			pterm.Error.Printfln("You draw %d for the Two", len(ev.Cards))
		} else {
			pterm.Success.Printfln("Computer draws %d for the Two", ev.Count)
		}
	case game.EventPlayerDraw:
		if ev.Card != nil {
			pterm.Info.Println("You draw " + cardLabel(*ev.Card))
		}
	case game.EventPlayerPass:
		pterm.Info.Println("The deck is empty, your turn passes")
	case game.EventGameEnd:
		if ev.Payload["winner"] == engine.SidePlayer.String() {
			pterm.Success.Printfln("You win! Streak: %v", ev.Payload["winStreak"])
		} else {
			pterm.Error.Println("The computer wins. Your streak resets.")
		}
	case game.EventPrivateFail:
		pterm.Error.Printfln("Not allowed: %v", ev.Payload["reason"])
	}
}

func cardLabel(c game.EventCard) string {
	if c.Rank == engine.RankJoker.String() {
		return "JOKER"
	}
	return c.Rank + suitSymbol(c.Suit)
}

func suitSymbol(name string) string {
	return engine.ParseSuit(name).Symbol()
}

func symbols(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = suitSymbol(n)
	}
	return out
}
