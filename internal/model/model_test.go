package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func parse(t *testing.T, m any) *schema.Schema {
	t.Helper()
	s, err := schema.Parse(m, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	return s
}

func TestSchemaTables(t *testing.T) {
	want := map[string]bool{
		"catalog_infos": true,
		"missions":      true,
		"demos":         true,
		"playback_runs": true,
	}
	for _, m := range DatabaseModels {
		s := parse(t, m)
		assert.True(t, want[s.Table], "unexpected table %s", s.Table)
		delete(want, s.Table)
	}
	assert.Empty(t, want, "tables missing from DatabaseModels")
}

func TestMissionUniqueByFileAndLevel(t *testing.T) {
	s := parse(t, &Mission{})
	for _, col := range []string{"filename", "level"} {
		f := s.LookUpField(col)
		require.NotNil(t, f, col)
		assert.Equal(t, "idx_mission_level", f.TagSettings["UNIQUEINDEX"], col)
	}
}

func TestCatalogRowsBelongToMission(t *testing.T) {
	for _, m := range []any{&Demo{}, &PlaybackRun{}} {
		s := parse(t, m)
		rel, ok := s.Relationships.Relations["Mission"]
		require.True(t, ok, s.Table)
		assert.Equal(t, schema.BelongsTo, rel.Type, s.Table)
		require.NotNil(t, s.LookUpField("mission_id"), s.Table)
	}
}

func TestDemoColumns(t *testing.T) {
	s := parse(t, &Demo{})
	for _, col := range []string{"filename", "version", "start_time", "duration_ms", "frames", "events", "size_bytes", "player_slot", "opcodes", "paths"} {
		assert.NotNil(t, s.LookUpField(col), col)
	}
}
