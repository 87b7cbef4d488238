package ingest

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfmartin/lotoscope/internal/errs"
	"github.com/jfmartin/lotoscope/internal/rules"
)

const lotoCSV = `annee_numero_de_tirage;date_de_tirage;boule_1;boule_2;boule_3;boule_4;boule_5;numero_chance;nombre_de_gagnant_au_rang1;rapport_du_rang1;nombre_de_gagnant_au_rang2;rapport_du_rang2
2024042;07/05/2024;3;17;22;38;44;6;0;0;3;120000,00
2024043;08/05/2024;1;9;25;33;48;2;1;2000000,00;5;95000,50
`

func TestParseCSVLoto(t *testing.T) {
	draws, err := Parse(rules.Loto, []byte(lotoCSV))
	require.NoError(t, err)
	require.Len(t, draws, 2)

	d := draws[0]
	assert.Equal(t, rules.Loto, d.Game)
	assert.Equal(t, "2024-05-07", d.Date.Format("2006-01-02"))
	assert.Equal(t, []int{3, 17, 22, 38, 44}, d.Main)
	assert.Equal(t, []int{6}, d.Special)
	require.Len(t, d.Tiers, 2)
	assert.Equal(t, 1, d.Tiers[0].Rank)
	assert.Equal(t, 0, d.Tiers[0].Winners)
	assert.Equal(t, 3, d.Tiers[1].Winners)
	assert.InDelta(t, 120000.00, d.Tiers[1].Payout, 1e-9)

	assert.InDelta(t, 2000000.00, draws[1].Tiers[0].Payout, 1e-9, "French decimal comma")
}

func TestParseCSVEuroMillions(t *testing.T) {
	csv := "date_de_tirage;boule_1;boule_2;boule_3;boule_4;boule_5;etoile_1;etoile_2\n" +
		"2024-01-02;2;14;27;39;50;3;9\n"
	draws, err := Parse(rules.EuroMillions, []byte(csv))
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.Equal(t, []int{2, 14, 27, 39, 50}, draws[0].Main)
	assert.Equal(t, []int{3, 9}, draws[0].Special)
}

func TestParseCSVSkipsMalformedRows(t *testing.T) {
	csv := "date_de_tirage;boule_1;boule_2;boule_3;boule_4;boule_5;numero_chance\n" +
		"07/05/2024;3;17;22;38;44;6\n" +
		"not-a-date;1;2;3;4;5;1\n" +
		"09/05/2024;5;16;27;38;49;9\n"
	draws, err := Parse(rules.Loto, []byte(csv))
	require.NoError(t, err)
	assert.Len(t, draws, 2)
}

func TestParseCSVOutOfRangeSurvivesParsing(t *testing.T) {
	// Range validation is the store's job; the parser only shapes rows.
	csv := "date_de_tirage;boule_1;boule_2;boule_3;boule_4;boule_5;numero_chance\n" +
		"07/05/2024;3;17;22;38;51;6\n"
	draws, err := Parse(rules.Loto, []byte(csv))
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.Equal(t, []int{3, 17, 22, 38, 51}, draws[0].Main)
}

func TestParseRejectsMissingColumns(t *testing.T) {
	_, err := Parse(rules.Loto, []byte("foo;bar\n1;2\n"))
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.ParseFailure))
}

func TestParseRejectsEmptyPayload(t *testing.T) {
	_, err := Parse(rules.Loto, nil)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.ParseFailure))
}

func TestParseZipPayload(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("loto_201911.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte(lotoCSV))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	draws, err := Parse(rules.Loto, buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, draws, 2)
}

func TestParseZipWithoutCSV(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("readme.txt")
	w.Write([]byte("nothing here"))
	zw.Close()

	_, err := Parse(rules.Loto, buf.Bytes())
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.ParseFailure))
}

const lotoHTML = `<!DOCTYPE html>
<html><body>
<div class="draw-result" data-date="2024-05-07">
  <ul class="balls">
    <li class="ball">3</li><li class="ball">17</li><li class="ball">22</li>
    <li class="ball">38</li><li class="ball">44</li>
    <li class="lucky">6</li>
  </ul>
  <table>
    <tr class="tier" data-rank="1"><td>0</td><td>0,00 €</td></tr>
    <tr class="tier" data-rank="2"><td>3</td><td>120 000,00 €</td></tr>
  </table>
</div>
<div class="draw-result" data-date="2024-05-08">
  <ul class="balls">
    <li class="ball">1</li><li class="ball">9</li><li class="ball">25</li>
    <li class="ball">33</li><li class="ball">48</li>
    <li class="lucky">2</li>
  </ul>
</div>
</body></html>`

func TestParseHTML(t *testing.T) {
	draws, err := Parse(rules.Loto, []byte(lotoHTML))
	require.NoError(t, err)
	require.Len(t, draws, 2)

	d := draws[0]
	assert.Equal(t, "2024-05-07", d.Date.Format("2006-01-02"))
	assert.Equal(t, []int{3, 17, 22, 38, 44}, d.Main)
	assert.Equal(t, []int{6}, d.Special)
	require.Len(t, d.Tiers, 2)
	assert.InDelta(t, 120000.00, d.Tiers[1].Payout, 1e-9)

	assert.Empty(t, draws[1].Tiers)
}

func TestParseHTMLNoResults(t *testing.T) {
	_, err := Parse(rules.Loto, []byte("<html><body><p>rien</p></body></html>"))
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.ParseFailure))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"120000,00", 120000},
		{"2 000 000,50 €", 2000000.50},
		{"9.40", 9.40},
		{"", 0},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "input %q", tt.in)
	}
}
