package pkg

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/userdir/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	dbtest "gorm.io/gorm/utils/tests"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(queryParams url.Values) *gin.Context {
	req := httptest.NewRequest(http.MethodGet, "/?"+queryParams.Encode(), nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c
}

func TestParseSearchParams_Defaults(t *testing.T) {
	c := newTestContext(url.Values{})
	p := ParseSearchParams(c)

	want := domain.SearchParams{Page: 1, PerPage: 15}
	if p != want {
		t.Errorf("expected %+v, got %+v", want, p)
	}
}

func TestParseSearchParams_CustomValues(t *testing.T) {
	c := newTestContext(url.Values{
		"page":     {"3"},
		"per_page": {"50"},
		"sort":     {"name"},
		"sort_dir": {"ASC"},
		"filter":   {"érick"},
	})
	p := ParseSearchParams(c)

	if p.Page != 3 {
		t.Errorf("expected Page=3, got %d", p.Page)
	}
	if p.PerPage != 50 {
		t.Errorf("expected PerPage=50, got %d", p.PerPage)
	}
	if p.Sort != "name" || p.SortDir != domain.SortAsc {
		t.Errorf("expected name asc, got %s %s", p.Sort, p.SortDir)
	}
	if p.Filter != "érick" {
		t.Errorf("expected Filter=érick, got %q", p.Filter)
	}
}

func TestParseSearchParams_Clamping(t *testing.T) {
	tests := []struct {
		name        string
		query       url.Values
		wantPage    int
		wantPerPage int
	}{
		{"page below minimum", url.Values{"page": {"0"}}, 1, 15},
		{"negative page", url.Values{"page": {"-5"}}, 1, 15},
		{"per_page below minimum", url.Values{"per_page": {"0"}}, 1, 15},
		{"negative per_page", url.Values{"per_page": {"-5"}}, 1, 15},
		{"per_page above maximum", url.Values{"per_page": {"200"}}, 1, 100},
		{"invalid per_page", url.Values{"per_page": {"abc"}}, 1, 15},
		{"invalid page", url.Values{"page": {"two"}}, 1, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParseSearchParams(newTestContext(tt.query))
			if p.Page != tt.wantPage {
				t.Errorf("expected Page=%d, got %d", tt.wantPage, p.Page)
			}
			if p.PerPage != tt.wantPerPage {
				t.Errorf("expected PerPage=%d, got %d", tt.wantPerPage, p.PerPage)
			}
		})
	}
}

func TestParseSearchParams_DirectionWithoutSortDropped(t *testing.T) {
	p := ParseSearchParams(newTestContext(url.Values{"sort_dir": {"asc"}}))
	if p.SortDir != "" {
		t.Errorf("expected empty SortDir without sort, got %q", p.SortDir)
	}
}

func TestValidFieldName(t *testing.T) {
	valid := []string{"id", "name", "created_at", "name_search", "_private", "C"}
	invalid := []string{"", "1field", "name;DROP", "field name", "a.b", "a-b", `C"`}

	for _, f := range valid {
		if !validFieldName.MatchString(f) {
			t.Errorf("expected %q to be valid", f)
		}
	}
	for _, f := range invalid {
		if validFieldName.MatchString(f) {
			t.Errorf("expected %q to be invalid", f)
		}
	}
}

// --------------- helpers for GORM scope tests ---------------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(dbtest.DummyDialector{}, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return db
}

func orderColumns(t *testing.T, db *gorm.DB) []string {
	t.Helper()
	c, ok := db.Statement.Clauses["ORDER BY"]
	if !ok {
		return nil
	}
	orderBy, ok := c.Expression.(clause.OrderBy)
	if !ok {
		t.Fatalf("unexpected ORDER BY expression %T", c.Expression)
	}
	cols := make([]string, 0, len(orderBy.Columns))
	for _, col := range orderBy.Columns {
		cols = append(cols, col.Column.Name)
	}
	return cols
}

// --------------- Sort scope ---------------

func TestSort(t *testing.T) {
	tests := []struct {
		name string
		sort SortSpec
		want []string
	}{
		{"asc with tie-break", SortSpec{Column: "name", Dir: domain.SortAsc, TieBreak: "id"}, []string{"name asc", "id asc"}},
		{"desc with tie-break", SortSpec{Column: "created_at", Dir: domain.SortDesc, TieBreak: "id"}, []string{"created_at desc", "id asc"}},
		{"empty direction is asc", SortSpec{Column: "name"}, []string{"name asc"}},
		{"collation", SortSpec{Column: "name", Dir: domain.SortDesc, Collation: "C"}, []string{`name COLLATE "C" desc`}},
		{"invalid collation ignored", SortSpec{Column: "name", Dir: domain.SortAsc, Collation: `C"; DROP`}, []string{"name asc"}},
		{"tie-break equal to column", SortSpec{Column: "id", Dir: domain.SortAsc, TieBreak: "id"}, []string{"id asc"}},
		{"sql injection in column", SortSpec{Column: "name;DROP TABLE users--", TieBreak: "id"}, nil},
		{"empty column", SortSpec{Column: "", TieBreak: "id"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Sort(tt.sort)(newTestDB(t))
			got := orderColumns(t, result)
			if len(got) != len(tt.want) {
				t.Fatalf("ORDER BY columns = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ORDER BY[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// --------------- ContainsNormalized scope ---------------

func TestContainsNormalized(t *testing.T) {
	tests := []struct {
		name        string
		column      string
		filter      string
		applied     bool
		wantPattern string
	}{
		{"accents and case folded", "name_search", "ÉRICK", true, "%erick%"},
		{"wildcards escaped", "name_search", "50%_off", true, `%50\%\_off%`},
		{"backslash escaped", "name_search", `a\b`, true, `%a\\b%`},
		{"whitespace kept", "name_search", " ana ", true, "% ana %"},
		{"empty filter", "name_search", "", false, ""},
		{"invalid column", "name OR 1=1", "x", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ContainsNormalized(tt.column, tt.filter)(newTestDB(t))
			c, hasWhere := result.Statement.Clauses["WHERE"]
			if hasWhere != tt.applied {
				t.Fatalf("Where clause applied=%v, want %v", hasWhere, tt.applied)
			}
			if !tt.applied {
				return
			}
			where, ok := c.Expression.(clause.Where)
			if !ok || len(where.Exprs) != 1 {
				t.Fatalf("unexpected WHERE expression %#v", c.Expression)
			}
			expr, ok := where.Exprs[0].(clause.Expr)
			if !ok || len(expr.Vars) != 1 {
				t.Fatalf("unexpected WHERE condition %#v", where.Exprs[0])
			}
			if expr.Vars[0] != tt.wantPattern {
				t.Errorf("pattern = %q, want %q", expr.Vars[0], tt.wantPattern)
			}
		})
	}
}

// --------------- Paginate scope ---------------

func TestPaginate(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		perPage    int
		wantOffset int
		wantLimit  int
	}{
		{"first page", 1, 10, 0, 10},
		{"second page", 2, 15, 15, 15},
		{"large page number", 100, 50, 4950, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := domain.SearchParams{Page: tt.page, PerPage: tt.perPage}
			result := Paginate(params)(newTestDB(t))
			c, hasLimit := result.Statement.Clauses["LIMIT"]
			if !hasLimit {
				t.Fatal("expected LIMIT clause to be applied")
			}
			limit, ok := c.Expression.(clause.Limit)
			if !ok {
				t.Fatalf("unexpected LIMIT expression %T", c.Expression)
			}
			if limit.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", limit.Offset, tt.wantOffset)
			}
			if limit.Limit == nil || *limit.Limit != tt.wantLimit {
				t.Errorf("Limit = %v, want %d", limit.Limit, tt.wantLimit)
			}
		})
	}
}
