package pkg

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/userdir/internal/domain"
)

const maxPerPage = 100

// validFieldName matches only alphanumeric characters and underscores.
var validFieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// likeEscaper escapes LIKE wildcards; patterns built with it use ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ParseSearchParams extracts search parameters from the query string:
// page, per_page, sort, sort_dir and filter. Unparsable or out-of-range
// values fall back to defaults; per_page is capped at 100.
func ParseSearchParams(c *gin.Context) domain.SearchParams {
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	return domain.SearchParams{
		Page:    page,
		PerPage: perPage,
		Sort:    c.Query("sort"),
		SortDir: domain.SortDirection(c.Query("sort_dir")),
		Filter:  c.Query("filter"),
	}.Normalize()
}

// Paginate returns a GORM scope that applies LIMIT and OFFSET for params.
func Paginate(params domain.SearchParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(params.Skip()).Limit(params.Take())
	}
}

// SortSpec is an ORDER BY request for the Sort scope.
type SortSpec struct {
	Column    string
	Dir       domain.SortDirection
	Collation string
	// TieBreak is ordered ascending after Column so that rows with equal
	// keys come back in a stable order.
	TieBreak string
}

// Sort returns a GORM scope that applies ORDER BY for s.
// Every identifier is validated against a strict
// pattern; an invalid column leaves the query unordered.
func Sort(s SortSpec) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !validFieldName.MatchString(s.Column) {
			return db
		}
		dir := "asc"
		if s.Dir == domain.SortDesc {
			dir = "desc"
		}

		expr := s.Column
		if s.Collation != "" && validFieldName.MatchString(s.Collation) {
			expr += ` COLLATE "` + s.Collation + `"`
		}
		db = db.Order(expr + " " + dir)

		if s.TieBreak != "" && s.TieBreak != s.Column && validFieldName.MatchString(s.TieBreak) {
			db = db.Order(s.TieBreak + " asc")
		}
		return db
	}
}

// ContainsNormalized returns a GORM scope matching rows whose column contains
// filter after NormalizeText. column must hold text already folded with
// NormalizeText. An empty filter matches every row.
func ContainsNormalized(column, filter string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter == "" || !validFieldName.MatchString(column) {
			return db
		}
		pattern := "%" + likeEscaper.Replace(NormalizeText(filter)) + "%"
		return db.Where(column+` LIKE ? ESCAPE '\'`, pattern)
	}
}
