// Package words loads the static topic/secret-word list used to seed each
// round.
package words

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
)

// Pair is one topic plus the secret word regular players receive.
type Pair struct {
	Topic string
	Word  string
}

type List []Pair

// Load reads a CSV file with one "topic,word" entry per line.
func Load(path string) (List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("word list %s is empty", path)
	}

	list := make(List, 0, len(records))
	for _, rec := range records {
		list = append(list, Pair{Topic: rec[0], Word: rec[1]})
	}
	return list, nil
}

// Random picks one entry uniformly.
func (l List) Random(rng *rand.Rand) Pair {
	return l[rng.Intn(len(l))]
}
