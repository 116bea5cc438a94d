package attendance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presensi/internal/roster"
)

type classRoster struct{ repo *roster.MemoryRepository }

func (c classRoster) GetStudentsByClass(ctx context.Context, class string) ([]roster.Student, error) {
	return c.repo.ListStudentsByClass(ctx, class, 500)
}

func TestDailyReport(t *testing.T) {
	repo := seedRoster(t)
	store := NewMemoryStore()
	clk := &clock{}
	eng := NewEngine(NewIdentityResolver(repo), store, nil, EngineOptions{Location: wib, Now: clk.Now})
	ctx := context.Background()

	clk.Set(7, 10, 0)
	require.True(t, eng.Record(ctx, Scan{Code: "15012", Session: SessionMasuk}).Success)
	clk.Set(7, 50, 0)
	require.True(t, eng.Record(ctx, Scan{Code: "15014", Session: SessionMasuk}).Success)
	clk.Set(12, 5, 0)
	require.True(t, eng.Record(ctx, Scan{Code: "15012", Session: SessionZuhur, Haid: true}).Success)

	rep, err := NewReporter(store, classRoster{repo}).Daily(ctx, "2026-10-14", "7A")
	require.NoError(t, err)
	require.Len(t, rep.Records, 1)
	assert.Equal(t, "s1", rep.Records[0].StudentID)
	assert.Equal(t, 1, rep.Counts[StatusHaid])
	assert.Equal(t, 1, rep.Counts[StatusAlpha], "Umar has no record")
	assert.Equal(t, 0, rep.Counts[StatusTerlambat])
	require.Len(t, rep.Missing, 1)
	assert.Equal(t, "s2", rep.Missing[0].ID)
	assert.Equal(t, 1, rep.HaidMarks)

	all, err := NewReporter(store, classRoster{repo}).Daily(ctx, "2026-10-14", "")
	require.NoError(t, err)
	assert.Len(t, all.Records, 2)
	assert.Equal(t, 1, all.Counts[StatusTerlambat])
	assert.Empty(t, all.Missing)
	assert.Equal(t, "Aisyah", all.Records[0].StudentName)
}

func TestDailyReportEmptyDay(t *testing.T) {
	rep, err := NewReporter(NewMemoryStore(), nil).Daily(context.Background(), "2026-10-15", "")
	require.NoError(t, err)
	assert.NotNil(t, rep.Records)
	assert.Empty(t, rep.Records)
	for _, s := range Statuses {
		assert.Zero(t, rep.Counts[s])
	}
}
