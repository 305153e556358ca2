package store

// Schema v1 - catalog of companies, groups, members, nationalities and releases
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS companies (
  company_id INTEGER PRIMARY KEY AUTOINCREMENT,
  company_name TEXT NOT NULL UNIQUE,
  founder TEXT,
  founded_date TEXT
);

-- company_id is nullable: a group may be unaffiliated
CREATE TABLE IF NOT EXISTS groups (
  group_id INTEGER PRIMARY KEY AUTOINCREMENT,
  company_id INTEGER REFERENCES companies(company_id)
    ON UPDATE CASCADE
    ON DELETE SET NULL,
  group_name TEXT NOT NULL UNIQUE,
  debut_date TEXT,
  fandom_name TEXT,
  image_path TEXT
);

CREATE TABLE IF NOT EXISTS members (
  member_id INTEGER PRIMARY KEY AUTOINCREMENT,
  group_id INTEGER NOT NULL REFERENCES groups(group_id)
    ON UPDATE CASCADE
    ON DELETE CASCADE,
  stage_name TEXT NOT NULL,
  real_name TEXT,
  birth_date TEXT,
  image_path TEXT,
  UNIQUE (group_id, stage_name)
);

CREATE TABLE IF NOT EXISTS nationalities (
  nationality_code TEXT PRIMARY KEY,
  nationality_name TEXT
);

CREATE TABLE IF NOT EXISTS member_nationalities (
  member_id INTEGER NOT NULL REFERENCES members(member_id)
    ON UPDATE CASCADE
    ON DELETE CASCADE,
  nationality_code TEXT NOT NULL REFERENCES nationalities(nationality_code)
    ON UPDATE CASCADE
    ON DELETE CASCADE,
  PRIMARY KEY (member_id, nationality_code)
);

CREATE TABLE IF NOT EXISTS releases (
  release_id INTEGER PRIMARY KEY AUTOINCREMENT,
  group_id INTEGER NOT NULL REFERENCES groups(group_id)
    ON UPDATE CASCADE
    ON DELETE CASCADE,
  release_name TEXT NOT NULL,
  release_type TEXT NOT NULL CHECK (release_type IN ('ALBUM','EP','SINGLE','SINGLE_ALBUM')),
  release_lang TEXT NOT NULL CHECK (release_lang IN ('KR','JP','EN')),
  release_date TEXT,
  UNIQUE (group_id, release_name, release_type, release_lang)
);

-- (release_id, title) is unique so a repeated import skips songs it already has
CREATE TABLE IF NOT EXISTS songs (
  song_id INTEGER PRIMARY KEY AUTOINCREMENT,
  release_id INTEGER NOT NULL REFERENCES releases(release_id)
    ON UPDATE CASCADE
    ON DELETE CASCADE,
  title TEXT NOT NULL,
  youtube_url TEXT,
  UNIQUE (release_id, title)
);

CREATE INDEX IF NOT EXISTS idx_groups_company_id ON groups(company_id);
CREATE INDEX IF NOT EXISTS idx_groups_name ON groups(group_name);

CREATE INDEX IF NOT EXISTS idx_members_group_id ON members(group_id);
CREATE INDEX IF NOT EXISTS idx_members_stage_name ON members(stage_name);

CREATE INDEX IF NOT EXISTS idx_member_nationalities_member_id ON member_nationalities(member_id);
CREATE INDEX IF NOT EXISTS idx_member_nationalities_nat_code ON member_nationalities(nationality_code);

CREATE INDEX IF NOT EXISTS idx_releases_group_id ON releases(group_id);
CREATE INDEX IF NOT EXISTS idx_songs_release_id ON songs(release_id);
CREATE INDEX IF NOT EXISTS idx_songs_title ON songs(title);
`

// Table names in the order rows must be imported (parents first)
const (
	TableCompanies           = "companies"
	TableGroups              = "groups"
	TableMembers             = "members"
	TableNationalities       = "nationalities"
	TableMemberNationalities = "member_nationalities"
	TableReleases            = "releases"
	TableSongs               = "songs"
)

// ImportOrder lists the catalog tables parents first
var ImportOrder = []string{
	TableCompanies,
	TableGroups,
	TableMembers,
	TableNationalities,
	TableMemberNationalities,
	TableReleases,
	TableSongs,
}

// wipeOrder lists the catalog tables children first
var wipeOrder = []string{
	TableSongs,
	TableReleases,
	TableMemberNationalities,
	TableNationalities,
	TableMembers,
	TableGroups,
	TableCompanies,
}
