package dictionary

import (
	"encoding/json/v2"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/seforimapp/seforim-server/internal/hebrew"
)

// Entry is one (token -> expansion set) pair fed to WriteStore. A token may
// appear in several entries when it belongs to multiple bases.
type Entry struct {
	Token     string
	Expansion Expansion
}

// WriteStore creates a dictionary store at path from scratch. Used by the
// corpus tooling that converts upstream lexica, and by tests.
func WriteStore(path string, entries []Entry, hashemSurfaces []string) error {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return fmt.Errorf("create dictionary %s: %w", path, err)
	}
	defer db.Close()

	grouped := make(map[string][]Expansion)
	for _, e := range entries {
		token := hebrew.Normalize(e.Token)
		if token == "" {
			continue
		}
		grouped[token] = append(grouped[token], e.Expansion)
	}

	err = db.Update(func(txn *badger.Txn) error {
		for token, exps := range grouped {
			data, err := json.Marshal(exps)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(tokenKeyPrefix+token), data); err != nil {
				return err
			}
		}
		if len(hashemSurfaces) > 0 {
			data, err := json.Marshal(hashemSurfaces)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(hashemKey), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("populate dictionary: %w", err)
	}
	return nil
}
