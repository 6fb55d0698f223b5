// Package intake merges incoming job submissions into a tracked collection
// without creating duplicates.
//
// A submission is a duplicate when its normalized URL (query string and
// fragment stripped) is already present, or when its lower-cased
// (role, company) pair is. Duplicates are dropped silently; they never
// overwrite the existing record.
package intake

import (
	"strings"
	"time"

	"github.com/jonathan/job-tracker/internal/types"
)

// Placeholders used by the capture path when the caller omits role or company.
const (
	UnknownRole    = "Unknown Role"
	UnknownCompany = "Unknown Company"
)

// Rejection reasons reported in MergeResult.Rejected.
const (
	ReasonDuplicateURL = "duplicate_url"
	ReasonDuplicateKey = "duplicate_key"
	ReasonInvalid      = "invalid"
)

// Options controls the default fields given to accepted records.
type Options struct {
	// Status applied when the submission carries none. Defaults to wishlist.
	Status string
	// Location applied when the submission carries none.
	Location string
	// RoleType, Source and Priority are applied when the submission leaves them empty.
	RoleType string
	Source   string
	Priority string
	// FromBookmarklet marks records captured by the browser bookmarklet.
	FromBookmarklet bool
	// StampApplied sets dateApplied to the capture day.
	StampApplied bool
	// Now overrides the clock, for tests.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Rejection describes one submission that was not accepted.
type Rejection struct {
	Index   int    `json:"index"`
	Role    string `json:"role"`
	Company string `json:"company"`
	Reason  string `json:"reason"`
	Detail  string `json:"detail,omitempty"`
}

// MergeResult is the outcome of a Merge call.
type MergeResult struct {
	// Records is the full merged collection: existing records in their
	// original order followed by accepted records in submission order.
	Records  []types.JobRecord
	Accepted []types.JobRecord
	Rejected []Rejection
}

// Added returns the number of accepted submissions.
func (r *MergeResult) Added() int {
	return len(r.Accepted)
}

// NormalizeURL trims the URL and strips its query string and fragment.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return u
}

// Key returns the composite dedup key for a role and company.
func Key(role, company string) string {
	return fold(role) + "|" + fold(company)
}

func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// index holds the lookup sets built from a collection.
type index struct {
	urls map[string]struct{}
	keys map[string]struct{}
	ids  map[int64]struct{}
}

func newIndex(records []types.JobRecord) *index {
	idx := &index{
		urls: make(map[string]struct{}, len(records)),
		keys: make(map[string]struct{}, len(records)),
		ids:  make(map[int64]struct{}, len(records)),
	}
	for i := range records {
		idx.add(&records[i])
	}
	return idx
}

func (idx *index) add(r *types.JobRecord) {
	if u := NormalizeURL(r.URL); u != "" {
		idx.urls[u] = struct{}{}
	}
	if strings.TrimSpace(r.Role) != "" || strings.TrimSpace(r.Company) != "" {
		idx.keys[Key(r.Role, r.Company)] = struct{}{}
	}
	idx.ids[r.ID] = struct{}{}
}

// match returns the rejection reason for a candidate, or "" when it is new.
func (idx *index) match(url, role, company string) string {
	if u := NormalizeURL(url); u != "" {
		if _, ok := idx.urls[u]; ok {
			return ReasonDuplicateURL
		}
	}
	if _, ok := idx.keys[Key(role, company)]; ok {
		return ReasonDuplicateKey
	}
	return ""
}

// allocator hands out ids from a millisecond base, skipping any already taken.
type allocator struct {
	next  int64
	taken map[int64]struct{}
}

func (a *allocator) id() int64 {
	for {
		if _, ok := a.taken[a.next]; !ok {
			break
		}
		a.next++
	}
	id := a.next
	a.taken[id] = struct{}{}
	a.next++
	return id
}

// Merge appends the non-duplicate submissions to existing. It never mutates
// existing; the returned Records slice is a new collection. Submissions that
// fail validation are skipped and reported with ReasonInvalid.
func Merge(existing []types.JobRecord, incoming []types.JobSubmission, opts Options) MergeResult {
	now := opts.now()
	idx := newIndex(existing)
	alloc := &allocator{next: now.UnixMilli(), taken: idx.ids}

	result := MergeResult{
		Records: make([]types.JobRecord, len(existing), len(existing)+len(incoming)),
	}
	copy(result.Records, existing)

	for i := range incoming {
		sub := incoming[i]
		if err := sub.Validate(); err != nil {
			result.Rejected = append(result.Rejected, Rejection{
				Index: i, Role: sub.RoleName(), Company: sub.Company,
				Reason: ReasonInvalid, Detail: err.Error(),
			})
			continue
		}

		role := sub.RoleName()
		if reason := idx.match(sub.URL, role, sub.Company); reason != "" {
			result.Rejected = append(result.Rejected, Rejection{
				Index: i, Role: role, Company: sub.Company, Reason: reason,
			})
			continue
		}

		rec := newRecord(&sub, alloc.id(), now, opts)
		idx.add(&rec)
		result.Records = append(result.Records, rec)
		result.Accepted = append(result.Accepted, rec)
	}

	return result
}

// Capture inserts a single submission using the same duplicate test as
// Merge. Missing role or company fall back to placeholders rather than
// failing. When the submission duplicates an existing record, that record is
// returned with existed set and records is returned unchanged.
func Capture(existing []types.JobRecord, sub types.JobSubmission, opts Options) (records []types.JobRecord, rec types.JobRecord, existed bool) {
	sub.Role = sub.RoleName()
	if sub.Role == "" {
		sub.Role = UnknownRole
	}
	sub.Company = strings.TrimSpace(sub.Company)
	if sub.Company == "" {
		sub.Company = UnknownCompany
	}

	if i := Find(existing, sub.URL, sub.Role, sub.Company); i >= 0 {
		return existing, existing[i], true
	}

	now := opts.now()
	idx := newIndex(existing)
	alloc := &allocator{next: now.UnixMilli(), taken: idx.ids}
	rec = newRecord(&sub, alloc.id(), now, opts)

	records = make([]types.JobRecord, len(existing), len(existing)+1)
	copy(records, existing)
	records = append(records, rec)
	return records, rec, false
}

// Find returns the index of the first record matching the URL or the
// (role, company) key, or -1.
func Find(records []types.JobRecord, url, role, company string) int {
	u := NormalizeURL(url)
	k := Key(role, company)
	for i := range records {
		if u != "" && NormalizeURL(records[i].URL) == u {
			return i
		}
		if Key(records[i].Role, records[i].Company) == k {
			return i
		}
	}
	return -1
}

func newRecord(sub *types.JobSubmission, id int64, now time.Time, opts Options) types.JobRecord {
	rec := types.JobRecord{
		ID:              id,
		Role:            sub.RoleName(),
		Company:         strings.TrimSpace(sub.Company),
		URL:             strings.TrimSpace(sub.URL),
		JD:              sub.JD,
		Status:          firstNonEmpty(sub.Status, opts.Status, types.StatusWishlist),
		RoleType:        firstNonEmpty(sub.RoleType, opts.RoleType),
		Source:          firstNonEmpty(sub.Source, opts.Source),
		Location:        firstNonEmpty(sub.Location, opts.Location),
		Priority:        firstNonEmpty(sub.Priority, opts.Priority),
		Salary:          strings.TrimSpace(sub.Salary),
		Notes:           strings.TrimSpace(sub.Notes),
		LinkedInID:      sub.LinkedInID,
		Date:            now.Format("02/01/2006"),
		IsDemo:          false,
		FromBookmarklet: opts.FromBookmarklet,
		Pending:         opts.FromBookmarklet,
	}
	if opts.StampApplied {
		rec.DateApplied = now.Format("2006-01-02")
	}
	rec.Sanitize(types.StatusWishlist)
	return rec
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
