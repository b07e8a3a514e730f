package plugin_test

import (
	"strings"
	"testing"

	Np "github.com/maroda/nocturne/plugin"
)

func TestJSONSource_Extract(t *testing.T) {
	source := &Np.JSONSource{}

	t.Run("Decodes the stages array", func(t *testing.T) {
		fixture := `{"stages": ["W", "N1", "N2", "N3", "R"]}`

		got, err := source.Extract(strings.NewReader(fixture), 30)
		assertError(t, err, nil)
		assertInt(t, len(got), 5)
		assertString(t, string(got[1]), "N1")
	})

	t.Run("Errors on malformed JSON", func(t *testing.T) {
		_, err := source.Extract(strings.NewReader(`{"stages":`), 30)
		assertGotError(t, err)
		assertStringContains(t, err.Error(), "error decoding stage json")
	})

	t.Run("A missing stages key decodes empty", func(t *testing.T) {
		got, err := source.Extract(strings.NewReader(`{}`), 30)
		assertError(t, err, nil)
		assertInt(t, len(got), 0)
	})
}

func TestJSONSource_Type(t *testing.T) {
	source := &Np.JSONSource{}
	assertString(t, source.Type(), "json")
}
