// Package answerkeys loads answer-key seed bundles from YAML. A bundle is
// one grade's full key set; seeding runs before that grade's testing window
// opens.
package answerkeys

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

// Bundle is one grade's seed file.
type Bundle struct {
	Grade int        `yaml:"grade"`
	Keys  []BundleKey `yaml:"keys"`
}

// BundleKey mirrors domain.AnswerKey in YAML form.
type BundleKey struct {
	QuestionNumber int    `yaml:"question_number"`
	Domain         string `yaml:"domain"`
	QuestionType   string `yaml:"question_type"`
	Construct      string `yaml:"construct"`
	Label          string `yaml:"label"`
	OptionA        string `yaml:"option_a"`
	OptionB        string `yaml:"option_b"`
	OptionC        string `yaml:"option_c"`
	OptionD        string `yaml:"option_d"`
	CorrectAnswer  string `yaml:"correct_answer"`
	QuestionText   string `yaml:"question_text"`
	Rationale      string `yaml:"rationale"`
}

var validDomains = map[domain.Domain]struct{}{
	domain.DomainEnglish:     {},
	domain.DomainMathematics: {},
	domain.DomainReasoning:   {},
	domain.DomainMindset:     {},
	domain.DomainValues:      {},
	domain.DomainCreativity:  {},
}

var validTypes = map[domain.QuestionType]struct{}{
	domain.QuestionMCQ:     {},
	domain.QuestionWriting: {},
	domain.QuestionMindset: {},
}

// LoadFile parses and validates one bundle file into answer keys.
func LoadFile(path string) ([]domain.AnswerKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("op=answerkeys.load: %w", err)
	}
	var bundle Bundle
	if err := yaml.Unmarshal(b, &bundle); err != nil {
		return nil, fmt.Errorf("op=answerkeys.load: %s: %w", path, err)
	}
	keys, err := bundle.Validate()
	if err != nil {
		return nil, fmt.Errorf("op=answerkeys.load: %s: %w", path, err)
	}
	return keys, nil
}

// LoadDir loads every .yaml/.yml bundle under dir, sorted by filename for
// deterministic seeding order.
func LoadDir(dir string) ([]domain.AnswerKey, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("op=answerkeys.load_dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("op=answerkeys.load_dir: %w: no bundle files in %s", domain.ErrInvalidArgument, dir)
	}

	var all []domain.AnswerKey
	for _, f := range files {
		keys, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		all = append(all, keys...)
	}
	return all, nil
}

// Validate checks the bundle and converts it to answer keys.
func (b Bundle) Validate() ([]domain.AnswerKey, error) {
	if b.Grade < 3 || b.Grade > 10 {
		return nil, fmt.Errorf("%w: grade %d outside 3-10", domain.ErrInvalidArgument, b.Grade)
	}
	if len(b.Keys) == 0 {
		return nil, fmt.Errorf("%w: bundle has no keys", domain.ErrInvalidArgument)
	}

	seen := make(map[int]struct{}, len(b.Keys))
	keys := make([]domain.AnswerKey, 0, len(b.Keys))
	for _, k := range b.Keys {
		if k.QuestionNumber <= 0 {
			return nil, fmt.Errorf("%w: question_number %d", domain.ErrInvalidArgument, k.QuestionNumber)
		}
		if _, dup := seen[k.QuestionNumber]; dup {
			return nil, fmt.Errorf("%w: duplicate question_number %d", domain.ErrInvalidArgument, k.QuestionNumber)
		}
		seen[k.QuestionNumber] = struct{}{}

		d := domain.Domain(strings.ToLower(strings.TrimSpace(k.Domain)))
		if _, ok := validDomains[d]; !ok {
			return nil, fmt.Errorf("%w: question %d: unknown domain %q", domain.ErrInvalidArgument, k.QuestionNumber, k.Domain)
		}
		qt := domain.QuestionType(strings.ToLower(strings.TrimSpace(k.QuestionType)))
		if _, ok := validTypes[qt]; !ok {
			return nil, fmt.Errorf("%w: question %d: unknown question_type %q", domain.ErrInvalidArgument, k.QuestionNumber, k.QuestionType)
		}
		if strings.TrimSpace(k.Label) == "" {
			return nil, fmt.Errorf("%w: question %d: missing label", domain.ErrInvalidArgument, k.QuestionNumber)
		}

		correct := strings.ToUpper(strings.TrimSpace(k.CorrectAnswer))
		if qt == domain.QuestionMCQ && (len(correct) != 1 || correct < "A" || correct > "D") {
			return nil, fmt.Errorf("%w: question %d: correct_answer %q not in A-D", domain.ErrInvalidArgument, k.QuestionNumber, k.CorrectAnswer)
		}

		keys = append(keys, domain.AnswerKey{
			Grade:          b.Grade,
			QuestionNumber: k.QuestionNumber,
			Domain:         d,
			QuestionType:   qt,
			Construct:      k.Construct,
			Label:          k.Label,
			OptionA:        k.OptionA,
			OptionB:        k.OptionB,
			OptionC:        k.OptionC,
			OptionD:        k.OptionD,
			CorrectAnswer:  correct,
			QuestionText:   k.QuestionText,
			Rationale:      k.Rationale,
		})
	}
	return keys, nil
}
