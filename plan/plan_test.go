package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalPlan = `
groups:
  - { name: media, gid: 2001 }
services:
  - { name: plex, uid: 3001, group: media, dataset: tank/apps, home: /mnt/tank/apps/plex }
datasets:
  - { name: tank/apps, recordsize: 128K, compression: lz4 }
snapshots:
  - { dataset: tank/apps, frequency: daily, retention: { value: 2, unit: WEEK } }
tunables:
  - { var: vm.swappiness, value: "1", type: SYSCTL }
`

func TestParseMinimalPlan(t *testing.T) {
	p, err := Parse([]byte(minimalPlan))
	require.NoError(t, err)

	require.Len(t, p.Services, 1)
	assert.Equal(t, DefaultShell, p.Services[0].Shell, "default shell applied")
	require.Len(t, p.Snapshots, 1)
	assert.Equal(t, DefaultNamingSchema, p.Snapshots[0].NamingSchema, "default naming schema applied")
	assert.True(t, p.Tunables[0].IsEnabled(), "tunables default to enabled")
}

func TestSeedPlanIsValid(t *testing.T) {
	p, err := Seed()
	require.NoError(t, err)

	assert.Len(t, p.Groups, 11)
	assert.GreaterOrEqual(t, len(p.Services), 60)
	assert.NotEmpty(t, p.Datasets)
	assert.NotEmpty(t, p.Snapshots)
	assert.NotEmpty(t, p.Tunables)
}

func TestValidateRejectsDuplicateUID(t *testing.T) {
	_, err := Parse([]byte(`
groups:
  - { name: media, gid: 2001 }
services:
  - { name: plex, uid: 3001, group: media, home: /mnt/tank/a }
  - { name: sonarr, uid: 3001, group: media, home: /mnt/tank/b }
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uid 3001")
}

func TestValidateRejectsDuplicateGID(t *testing.T) {
	_, err := Parse([]byte(`
groups:
  - { name: media, gid: 2001 }
  - { name: monitor, gid: 2001 }
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gid 2001")
}

func TestValidateRejectsDuplicateHome(t *testing.T) {
	_, err := Parse([]byte(`
groups:
  - { name: media, gid: 2001 }
services:
  - { name: plex, uid: 3001, group: media, home: /mnt/tank/x }
  - { name: sonarr, uid: 3002, group: media, home: /mnt/tank/x }
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "home")
}

func TestValidateRejectsUnknownGroup(t *testing.T) {
	_, err := Parse([]byte(`
groups:
  - { name: media, gid: 2001 }
services:
  - { name: plex, uid: 3001, group: nosuch, home: /mnt/tank/x }
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown group")
}

func TestValidateRejectsHomeOutsideDataset(t *testing.T) {
	_, err := Parse([]byte(`
groups:
  - { name: media, gid: 2001 }
services:
  - { name: plex, uid: 3001, group: media, dataset: tank/apps, home: /mnt/tank/other/plex }
datasets:
  - { name: tank/apps }
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not under dataset mountpoint")
}

func TestValidateRejectsBadRecordsize(t *testing.T) {
	_, err := Parse([]byte(`
groups:
  - { name: media, gid: 2001 }
datasets:
  - { name: tank/apps, recordsize: 17K }
`))
	require.Error(t, err)
}

func TestValidateRejectsSnapshotWithoutSchedule(t *testing.T) {
	_, err := Parse([]byte(`
groups:
  - { name: media, gid: 2001 }
datasets:
  - { name: tank/apps }
snapshots:
  - { dataset: tank/apps, retention: { value: 1, unit: DAY } }
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frequency or a schedule")
}

func TestValidateRejectsUnknownSnapshotDataset(t *testing.T) {
	_, err := Parse([]byte(`
groups:
  - { name: media, gid: 2001 }
snapshots:
  - { dataset: tank/nosuch, frequency: daily, retention: { value: 1, unit: DAY } }
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dataset")
}

func TestGroupFor(t *testing.T) {
	p, err := Parse([]byte(minimalPlan))
	require.NoError(t, err)

	g := p.GroupFor(p.Services[0])
	assert.Equal(t, 2001, g.GID)
}

func TestDatasetMountpoint(t *testing.T) {
	d := Dataset{Name: "tank/apps/grafana"}
	assert.Equal(t, "/mnt/tank/apps/grafana", d.Mountpoint())
}
