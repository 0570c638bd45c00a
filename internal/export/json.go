package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/JonMunkholm/dryerlog/internal/record"
)

// WriteJSON writes recs as a pretty-printed array, exactly as stored.
// A nil or empty set is written as [].
func WriteJSON(w io.Writer, recs []record.Record) error {
	if recs == nil {
		recs = []record.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
