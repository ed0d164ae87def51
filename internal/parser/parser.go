package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/prepdeck/internal/domain"
)

// Deck files hold cards like:
//
//	Q: What is a process?
//	A: A program in execution.
//	T: OS
//	D: Easy
//	---
//
// Blocks continue onto following lines until the next prefix. A new Q: or a
// "---" line starts the next card.
const separator = "---"

type block int

const (
	seeking block = iota
	inQuestion
	inAnswer
	inNotes
	inTopic
	inRole
	inCompany
	inDifficulty
)

var prefixes = []struct {
	prefix string
	block  block
}{
	{"Q:", inQuestion},
	{"A:", inAnswer},
	{"N:", inNotes},
	{"T:", inTopic},
	{"R:", inRole},
	{"C:", inCompany},
	{"D:", inDifficulty},
}

// ParseFile reads a deck from the given path and extracts all questions.
func ParseFile(path string) ([]domain.Question, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a deck from an io.Reader. Cards without question text are
// dropped.
func Parse(r io.Reader) ([]domain.Question, error) {
	scanner := bufio.NewScanner(r)
	var (
		questions []domain.Question
		current   domain.Question
		lines     []string
		state     = seeking
	)

	flushBlock := func() {
		if len(lines) == 0 {
			return
		}
		content := strings.TrimRight(strings.Join(lines, "\n"), "\n")
		switch state {
		case inQuestion:
			current.Question = content
		case inAnswer:
			current.Answer = content
		case inNotes:
			current.Notes = content
		case inTopic:
			current.Topic = strings.TrimSpace(content)
		case inRole:
			current.Role = strings.TrimSpace(content)
		case inCompany:
			current.Company = strings.TrimSpace(content)
		case inDifficulty:
			current.Difficulty = domain.Difficulty(strings.TrimSpace(content))
		}
		lines = nil
	}

	finishCard := func() {
		flushBlock()
		if strings.TrimSpace(current.Question) != "" {
			questions = append(questions, current)
		}
		current = domain.Question{}
		state = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == separator {
			finishCard()
			continue
		}

		next, rest, ok := matchPrefix(line)
		if !ok {
			if state != seeking {
				lines = append(lines, line)
			}
			continue
		}

		if next == inQuestion && state != seeking {
			finishCard()
		} else {
			flushBlock()
		}
		state = next
		lines = append(lines, rest)
	}

	finishCard()

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return questions, nil
}

func matchPrefix(line string) (block, string, bool) {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(line, p.prefix); ok {
			return p.block, strings.TrimPrefix(rest, " "), true
		}
	}
	return seeking, "", false
}
