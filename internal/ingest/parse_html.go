package ingest

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jfmartin/lotoscope/internal/archive"
	"github.com/jfmartin/lotoscope/internal/errs"
	"github.com/jfmartin/lotoscope/internal/rules"
)

// parseHTML extracts draws from an official results page. Each draw sits in
// a .draw-result block: the date in a data-date attribute, main numbers in
// li.ball, secondary numbers in li.lucky, and prize tiers in tr.tier rows
// carrying data-rank with winners and payout cells.
func parseHTML(game rules.Game, payload []byte) ([]archive.Draw, error) {
	const op = "ingest.parseHTML"

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, errs.Wrap(errs.ParseFailure, op, err)
	}

	var draws []archive.Draw
	doc.Find(".draw-result").Each(func(_ int, sel *goquery.Selection) {
		dateAttr, ok := sel.Attr("data-date")
		if !ok {
			return
		}
		date, err := parseDrawDate(dateAttr)
		if err != nil {
			return
		}

		var main, special []int
		bad := false
		sel.Find("li.ball").Each(func(_ int, li *goquery.Selection) {
			n, err := strconv.Atoi(strings.TrimSpace(li.Text()))
			if err != nil {
				bad = true
				return
			}
			main = append(main, n)
		})
		sel.Find("li.lucky").Each(func(_ int, li *goquery.Selection) {
			n, err := strconv.Atoi(strings.TrimSpace(li.Text()))
			if err != nil {
				bad = true
				return
			}
			special = append(special, n)
		})
		if bad {
			return
		}

		var tiers []archive.TierResult
		sel.Find("tr.tier").Each(func(_ int, tr *goquery.Selection) {
			rankAttr, ok := tr.Attr("data-rank")
			if !ok {
				return
			}
			rank, err := strconv.Atoi(rankAttr)
			if err != nil {
				return
			}
			cells := tr.Find("td")
			if cells.Length() < 2 {
				return
			}
			winners, err := strconv.Atoi(strings.TrimSpace(cells.Eq(0).Text()))
			if err != nil {
				return
			}
			payout, err := parseAmount(cells.Eq(1).Text())
			if err != nil {
				return
			}
			tiers = append(tiers, archive.TierResult{Rank: rank, Winners: winners, Payout: payout})
		})

		draws = append(draws, archive.Draw{
			Game: game, Date: date, Main: main, Special: special, Tiers: tiers,
		})
	})

	if len(draws) == 0 {
		return nil, errs.New(errs.ParseFailure, op, "no .draw-result blocks found")
	}
	return draws, nil
}
