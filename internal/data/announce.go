package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Announcement is a server message armed on the tick scheduler at boot.
// AfterTicks delays the first firing; EveryTicks > 0 makes it repeat by
// re-arming itself from inside its own callback.
type Announcement struct {
	Message    string `yaml:"message"`
	AfterTicks int64  `yaml:"after_ticks"`
	EveryTicks int64  `yaml:"every_ticks"`
}

type announcementFile struct {
	Announcements []Announcement `yaml:"announcements"`
}

// AnnouncementTable holds the announcement entries loaded from YAML.
type AnnouncementTable struct {
	entries []Announcement
}

// LoadAnnouncements reads the announcement list from a YAML file.
// A missing file is not an error — the server just has no announcements.
func LoadAnnouncements(path string) (*AnnouncementTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &AnnouncementTable{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var file announcementFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for i, a := range file.Announcements {
		if a.Message == "" {
			return nil, fmt.Errorf("%s: announcement %d has no message", path, i)
		}
		if a.AfterTicks < 0 || a.EveryTicks < 0 {
			return nil, fmt.Errorf("%s: announcement %d has negative ticks", path, i)
		}
	}

	return &AnnouncementTable{entries: file.Announcements}, nil
}

func (t *AnnouncementTable) Count() int {
	return len(t.entries)
}

func (t *AnnouncementTable) All() []Announcement {
	return t.entries
}
