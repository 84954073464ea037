// Package words supplies the fixed drawing vocabulary. The list is loaded
// once at startup and read-only afterwards, so it can be shared freely
// between rooms.
package words

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
)

//go:embed wordlist.txt
var embedded embed.FS

var ErrTooFewWords = errors.New("word list needs at least 3 entries")

type List struct {
	words []string
}

// New builds a list from the given words, dropping blanks. The game deals
// three candidates per round, so anything shorter is rejected.
func New(ws []string) (*List, error) {
	clean := make([]string, 0, len(ws))
	for _, w := range ws {
		w = strings.TrimSpace(w)
		if w != "" {
			clean = append(clean, w)
		}
	}
	if len(clean) < 3 {
		return nil, ErrTooFewWords
	}
	return &List{words: clean}, nil
}

// FromFile loads a newline-separated word list.
func FromFile(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()

	var ws []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		ws = append(ws, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	return New(ws)
}

// Default returns the embedded word list.
func Default() *List {
	data, err := embedded.ReadFile("wordlist.txt")
	if err != nil {
		panic(err) // embedded file, cannot fail
	}
	l, err := New(strings.Split(string(data), "\n"))
	if err != nil {
		panic(err)
	}
	return l
}

func (l *List) Len() int { return len(l.words) }

// Pick draws n distinct random words. n is capped at the list length.
func (l *List) Pick(n int) []string {
	if n > len(l.words) {
		n = len(l.words)
	}
	idx := rand.Perm(len(l.words))[:n]
	picked := make([]string, n)
	for i, j := range idx {
		picked[i] = l.words[j]
	}
	return picked
}
