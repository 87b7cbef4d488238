package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jfmartin/lotoscope/internal/archive"
	"github.com/jfmartin/lotoscope/internal/errs"
	"github.com/jfmartin/lotoscope/internal/rules"
)

// Parse interprets a raw results payload into candidate draws. It is pure:
// no IO, no clock. The payload format is sniffed: ZIP archives are unpacked
// to their first CSV member, leading '<' means an HTML results page,
// anything else is treated as the legacy semicolon-separated CSV export.
func Parse(game rules.Game, payload []byte) ([]archive.Draw, error) {
	const op = "ingest.Parse"

	if len(payload) == 0 {
		return nil, errs.New(errs.ParseFailure, op, "empty payload")
	}

	if bytes.HasPrefix(payload, []byte("PK\x03\x04")) {
		unpacked, err := unzipFirstCSV(payload)
		if err != nil {
			return nil, errs.Wrap(errs.ParseFailure, op, err)
		}
		payload = unpacked
	}

	if trimmed := bytes.TrimLeft(payload, " \t\r\n"); len(trimmed) > 0 && trimmed[0] == '<' {
		return parseHTML(game, payload)
	}
	return parseCSV(game, payload)
}

func unzipFirstCSV(payload []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("opening zip: %w", err)
	}
	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f.Name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("zip archive contains no CSV member")
}

// specialColumns returns the legacy CSV header names of the secondary pool.
func specialColumns(game rules.Game) []string {
	switch game {
	case rules.Loto:
		return []string{"numero_chance"}
	case rules.EuroMillions:
		return []string{"etoile_1", "etoile_2"}
	case rules.EuroDreams:
		return []string{"numero_dream"}
	default:
		return nil
	}
}

func parseCSV(game rules.Game, payload []byte) ([]archive.Draw, error) {
	const op = "ingest.parseCSV"

	r, err := rules.Get(game)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(payload))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errs.Wrap(errs.ParseFailure, op, err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}

	dateIdx, ok := col["date_de_tirage"]
	if !ok {
		return nil, errs.New(errs.ParseFailure, op, "missing date_de_tirage column")
	}
	for i := 1; i <= r.MainCount; i++ {
		if _, ok := col[fmt.Sprintf("boule_%d", i)]; !ok {
			return nil, errs.Newf(errs.ParseFailure, op, "missing boule_%d column", i)
		}
	}

	var draws []archive.Draw
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.ParseFailure, op, err)
		}

		d, err := csvRecordToDraw(game, r, record, col, dateIdx)
		if err != nil {
			// One malformed row does not poison the rest of the export.
			continue
		}
		draws = append(draws, *d)
	}

	if len(draws) == 0 {
		return nil, errs.New(errs.ParseFailure, op, "no parseable draw rows")
	}
	return draws, nil
}

func csvRecordToDraw(game rules.Game, r rules.GameRules, record []string, col map[string]int, dateIdx int) (*archive.Draw, error) {
	field := func(name string) (string, bool) {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return "", false
		}
		return strings.TrimSpace(record[i]), true
	}

	if dateIdx >= len(record) {
		return nil, fmt.Errorf("short record")
	}
	d, err := parseDrawDate(strings.TrimSpace(record[dateIdx]))
	if err != nil {
		return nil, err
	}

	main := make([]int, 0, r.MainCount)
	for i := 1; i <= r.MainCount; i++ {
		v, ok := field(fmt.Sprintf("boule_%d", i))
		if !ok {
			return nil, fmt.Errorf("missing boule_%d", i)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		main = append(main, n)
	}

	var special []int
	for _, name := range specialColumns(game) {
		v, ok := field(name)
		if !ok {
			return nil, fmt.Errorf("missing %s", name)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		special = append(special, n)
	}

	var tiers []archive.TierResult
	for rank := 1; rank <= len(r.PrizeTiers); rank++ {
		winners, okW := field(fmt.Sprintf("nombre_de_gagnant_au_rang%d", rank))
		payout, okP := field(fmt.Sprintf("rapport_du_rang%d", rank))
		if !okW && !okP {
			continue
		}
		t := archive.TierResult{Rank: rank}
		if okW {
			if t.Winners, err = strconv.Atoi(winners); err != nil {
				return nil, err
			}
		}
		if okP {
			if t.Payout, err = parseAmount(payout); err != nil {
				return nil, err
			}
		}
		tiers = append(tiers, t)
	}

	return &archive.Draw{Game: game, Date: d, Main: main, Special: special, Tiers: tiers}, nil
}

// parseDrawDate accepts the legacy French form and ISO-8601.
func parseDrawDate(s string) (time.Time, error) {
	for _, layout := range []string{"02/01/2006", "2006-01-02", "20060102"} {
		if d, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized draw date %q", s)
}

// parseAmount reads a monetary value, tolerating the French decimal comma
// and a currency suffix.
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(s, "€"))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
