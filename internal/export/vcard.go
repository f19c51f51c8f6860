package export

import (
	"fmt"
	"io"

	"github.com/emersion/go-vcard"

	"github.com/kalambet/tend/internal/storage"
)

// WriteVCards writes the roster as a stream of vCard 4.0 records.
func WriteVCards(w io.Writer, contacts []storage.Contact) error {
	enc := vcard.NewEncoder(w)
	for _, c := range contacts {
		card := make(vcard.Card)
		card.SetValue(vcard.FieldUID, c.ID)
		card.SetValue(vcard.FieldFormattedName, c.Name)
		if c.Notes != "" {
			card.SetValue(vcard.FieldNote, c.Notes)
		}
		if c.Birthday != nil {
			card.SetValue(vcard.FieldBirthday, c.Birthday.Format("20060102"))
		}
		vcard.ToV4(card)
		if err := enc.Encode(card); err != nil {
			return fmt.Errorf("encoding vcard for %s: %w", c.ID, err)
		}
	}
	return nil
}
