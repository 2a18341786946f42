package words

import (
	"bufio"
	_ "embed"
	"errors"
	"io"
	"math/rand/v2"
	"strings"
)

//go:embed words.txt
var builtin string

var ErrEmpty = errors.New("word list is empty")

// Dictionary is an immutable word list. Safe for concurrent use.
type Dictionary struct {
	words []string
}

// Default returns the dictionary compiled into the binary.
func Default() *Dictionary {
	d, err := Load(strings.NewReader(builtin))
	if err != nil {
		panic("words: builtin list: " + err.Error())
	}
	return d
}

// Load reads one word per line. Blank lines and duplicates are skipped.
func Load(r io.Reader) (*Dictionary, error) {
	seen := map[string]bool{}
	var list []string

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		list = append(list, w)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrEmpty
	}
	return &Dictionary{words: list}, nil
}

func (d *Dictionary) Len() int { return len(d.words) }

// Sample returns up to n distinct words in random order.
func (d *Dictionary) Sample(n int) []string {
	if n > len(d.words) {
		n = len(d.words)
	}
	if n <= 0 {
		return []string{}
	}

	pool := make([]string, len(d.words))
	copy(pool, d.words)
	for i := 0; i < n; i++ {
		j := i + rand.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n:n]
}
