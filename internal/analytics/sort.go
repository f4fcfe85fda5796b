package analytics

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/domain"
)

type SortKey string

const (
	SortByID      SortKey = "id"
	SortByType    SortKey = "type"
	SortByKVA     SortKey = "kVA"
	SortByMfgDate SortKey = "mfgDate"
	SortByTemp    SortKey = "tempC"
	SortByStatus  SortKey = "status"
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

var (
	ErrUnknownSortKey   = errors.New("unknown sort key")
	ErrUnknownSortOrder = errors.New("unknown sort order")
)

// ключи в нижнем регистре после приведения к lowerCamel
var sortKeyAliases = map[string]SortKey{
	"id":         SortByID,
	"type":       SortByType,
	"kva":        SortByKVA,
	"mfgdate":    SortByMfgDate,
	"tempc":      SortByTemp,
	"latesttemp": SortByTemp,
	"status":     SortByStatus,
}

// ParseSortKey принимает ключ в camelCase или snake_case ("mfg_date", "latest_temp")
func ParseSortKey(s string) (SortKey, error) {
	normalized := strings.ToLower(strcase.ToLowerCamel(strings.TrimSpace(s)))
	if key, ok := sortKeyAliases[normalized]; ok {
		return key, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
}

func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSortOrder, s)
}

// SortRows стабильная сортировка строк таблицы.
// Порядок меняет только знак сравнения, равные элементы сохраняют исходный порядок,
// поэтому повторная сортировка по тому же ключу ничего не меняет.
func SortRows(rows []domain.SummaryRow, key SortKey, order SortOrder) []domain.SummaryRow {
	out := make([]domain.SummaryRow, len(rows))
	copy(out, rows)

	compare := comparator(key)
	if compare == nil {
		return out
	}

	sign := 1
	if order == Desc {
		sign = -1
	}

	sort.SliceStable(out, func(i, j int) bool {
		return sign*compare(out[i], out[j]) < 0
	})
	return out
}

func comparator(key SortKey) func(a, b domain.SummaryRow) int {
	switch key {
	case SortByTemp:
		return func(a, b domain.SummaryRow) int {
			return cmp.Compare(tempOrNegInf(a.LatestTemp), tempOrNegInf(b.LatestTemp))
		}
	case SortByStatus:
		return func(a, b domain.SummaryRow) int {
			return cmp.Compare(statusRank(a.Status), statusRank(b.Status))
		}
	case SortByKVA:
		return func(a, b domain.SummaryRow) int {
			return cmp.Compare(a.KVA, b.KVA)
		}
	case SortByID, SortByType, SortByMfgDate:
		// collate.Collator не потокобезопасен, поэтому свой на каждую сортировку
		col := collate.New(language.English)
		field := stringField(key)
		return func(a, b domain.SummaryRow) int {
			return col.CompareString(field(a), field(b))
		}
	}
	return nil
}

func stringField(key SortKey) func(domain.SummaryRow) string {
	switch key {
	case SortByType:
		return func(r domain.SummaryRow) string { return r.Type }
	case SortByMfgDate:
		return func(r domain.SummaryRow) string { return r.MfgDate }
	default:
		return func(r domain.SummaryRow) string { return r.ID }
	}
}

func tempOrNegInf(t *float64) float64 {
	if t == nil {
		return math.Inf(-1)
	}
	return *t
}

func statusRank(s domain.Status) int {
	switch s {
	case domain.StatusOverheating:
		return 1
	default:
		return 0
	}
}
