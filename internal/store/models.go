package store

import "database/sql"

// Company is a record label or agency
type Company struct {
	ID          int64
	Name        string
	Founder     sql.NullString
	FoundedDate sql.NullString
}

// Group is a performing act. CompanyID is null for unaffiliated groups.
type Group struct {
	ID         int64
	CompanyID  sql.NullInt64
	Name       string
	DebutDate  sql.NullString
	FandomName sql.NullString
	ImagePath  sql.NullString

	// CompanyName is filled by reads that join companies; writes ignore it
	CompanyName sql.NullString
}

// Member belongs to exactly one group; stage names are unique within it
type Member struct {
	ID        int64
	GroupID   int64
	StageName string
	RealName  sql.NullString
	BirthDate sql.NullString
	ImagePath sql.NullString

	// Nationalities holds the member's nationality codes, sorted
	Nationalities []string

	// GroupName is filled by reads that join groups; writes ignore it
	GroupName string
}

// Nationality is keyed by its code (e.g. "KR")
type Nationality struct {
	Code string
	Name sql.NullString
}

// Release is an album, EP or single of a group
type Release struct {
	ID       int64
	GroupID  int64
	Name     string
	Type     ReleaseType
	Language Language
	Date     sql.NullString

	GroupName string // read-only, from the joined group
}

// Song is a track on a release
type Song struct {
	ID         int64
	ReleaseID  int64
	Title      string
	YouTubeURL sql.NullString
}

// SongHit is a song search result with its release and group context
type SongHit struct {
	Song
	ReleaseName string
	ReleaseType ReleaseType
	Language    Language
	GroupID     int64
	GroupName   string
}

// GroupDetail is a group together with the size of its catalog
type GroupDetail struct {
	Group
	MemberCount  int
	ReleaseCount int
	SongCount    int
}

// MemberDetail is a member with its group's name and company
type MemberDetail struct {
	Member
	CompanyName sql.NullString
}

// Dependents counts the rows a group delete would cascade to
type Dependents struct {
	Members       int
	Releases      int
	Songs         int
	Nationalities int // member_nationalities links
}

// MemberKey is the natural key of a member
type MemberKey struct {
	Group     string
	StageName string
}

// ReleaseKey is the natural key of a release
type ReleaseKey struct {
	Group    string
	Name     string
	Type     ReleaseType
	Language Language
}

// GroupFilter narrows SearchGroups. Empty fields do not filter.
type GroupFilter struct {
	Name         string // case-insensitive substring
	Company      string // exact company name
	Unaffiliated bool   // only groups without a company
}

// MemberFilter narrows SearchMembers. Empty fields do not filter.
type MemberFilter struct {
	StageName   string // case-insensitive substring
	Group       string // exact group name
	Nationality string // nationality code the member must hold
}

// SongFilter narrows SearchSongs. Empty fields do not filter.
type SongFilter struct {
	Title    string   // case-insensitive substring
	Group    string   // exact group name
	Language Language // release language
}
