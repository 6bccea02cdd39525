package service

import (
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/logger"
)

// HeaderSet is one accepted spelling of the ledger header row, in column order
type HeaderSet struct {
	Language string
	Headers  []string
}

// HeaderSets are the header rows a ledger may carry. Each maps position by
// position onto entity.Fields. Cell values are never translated.
var HeaderSets = []HeaderSet{
	{
		Language: "en",
		Headers:  []string{"Transaction amount", "Currency", "Transaction date", "Income source"},
	},
	{
		Language: "ru",
		Headers:  []string{"Сумма транзакции", "Валюта", "Дата транзакции", "Источник дохода"},
	},
}

// SchemaNormalizer maps localized headers onto canonical fields
type SchemaNormalizer struct {
	sets   []HeaderSet
	logger logger.Logger
}

// NewSchemaNormalizer creates a normalizer accepting HeaderSets
func NewSchemaNormalizer(log logger.Logger) *SchemaNormalizer {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &SchemaNormalizer{
		sets:   HeaderSets,
		logger: log,
	}
}

// Normalize checks the header row against every accepted header set and
// re-keys the data rows by canonical field
func (n *SchemaNormalizer) Normalize(table entity.Table) (*entity.NormalizedTable, error) {
	header := trimTrailingEmpty(table.Header)

	set := n.bestMatch(header)
	if err := checkHeader(header, set); err != nil {
		n.logger.Warn("Ledger header rejected", map[string]interface{}{
			"header":   header,
			"language": set.Language,
			"error":    err.Error(),
		})
		return nil, err
	}

	rows := make([]entity.Row, 0, len(table.Rows))
	for i, cells := range table.Rows {
		row := entity.Row{
			Number: i + 2,
			Cells:  make(map[entity.Field]string, len(entity.Fields)),
		}
		for col, field := range entity.Fields {
			if col < len(cells) {
				row.Cells[field] = cells[col]
			} else {
				row.Cells[field] = ""
			}
		}
		rows = append(rows, row)
	}

	n.logger.Debug("Ledger normalized", map[string]interface{}{
		"language": set.Language,
		"rows":     len(rows),
	})

	return &entity.NormalizedTable{
		Language: set.Language,
		Rows:     rows,
	}, nil
}

// bestMatch picks the header set sharing the most positions with header,
// so errors name the column the user most likely got wrong
func (n *SchemaNormalizer) bestMatch(header []string) HeaderSet {
	best, bestScore := n.sets[0], -1
	for _, set := range n.sets {
		score := 0
		for i, h := range set.Headers {
			if i < len(header) && header[i] == h {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = set, score
		}
	}
	return best
}

func checkHeader(header []string, set HeaderSet) error {
	for i, expected := range set.Headers {
		if i >= len(header) {
			return &entity.SchemaError{Column: i + 1, Expected: expected, Reason: "missing header"}
		}
		if header[i] == expected {
			continue
		}
		for j, other := range set.Headers {
			if j != i && header[i] == other {
				return &entity.SchemaError{Column: i + 1, Header: header[i], Expected: expected, Reason: "header out of order"}
			}
		}
		return &entity.SchemaError{Column: i + 1, Header: header[i], Expected: expected, Reason: "unexpected header"}
	}
	if len(header) > len(set.Headers) {
		col := len(set.Headers)
		return &entity.SchemaError{Column: col + 1, Header: header[col], Reason: "unexpected extra column"}
	}
	return nil
}

func trimTrailingEmpty(cells []string) []string {
	end := len(cells)
	for end > 0 && cells[end-1] == "" {
		end--
	}
	return cells[:end]
}
