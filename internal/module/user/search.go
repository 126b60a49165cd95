package user

import (
	"strings"

	"github.com/simp-lee/userdir/internal/domain"
	"github.com/simp-lee/userdir/internal/pkg"
)

// userSearch is shared by every backend so that they filter, order and echo
// the applied sort identically. Only active users are visible and the filter
// matches a substring of the name, ignoring case and accents.
var userSearch = pkg.SearchStrategy[*domain.User]{
	Visible: func(u *domain.User) bool { return !u.IsDeleted() },
	Match: func(u *domain.User, filter string) bool {
		return pkg.ContainsIgnoringAccents(u.Name(), filter)
	},
	Fields: map[string]pkg.SortField[*domain.User]{
		// Byte order; Postgres needs the C collation to agree.
		"name": {
			Column:    "name",
			Collation: "C",
			Compare:   func(a, b *domain.User) int { return strings.Compare(a.Name(), b.Name()) },
		},
		"createdAt": {
			Column:  "created_at",
			Compare: func(a, b *domain.User) int { return a.CreatedAt().Compare(b.CreatedAt()) },
		},
		"updatedAt": {
			Column:  "updated_at",
			Compare: func(a, b *domain.User) int { return a.UpdatedAt().Compare(b.UpdatedAt()) },
		},
	},
	DefaultSort: "createdAt",
	DefaultDir:  domain.SortDesc,
}

// nameSearchColumn stores the normalized name matched by the filter.
const nameSearchColumn = "name_search"

// seqColumn holds the insertion sequence used for FindAll order and ties.
const seqColumn = "seq"
