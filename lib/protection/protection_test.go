package protection

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var target = time.Date(2020, time.February, 6, 0, 0, 0, 0, time.UTC)

func TestShouldProtect(t *testing.T) {
	earlier := target.Add(-time.Hour)
	later := target.AddDate(0, 0, 3)

	testCases := []struct {
		name     string
		status   Status
		redirect bool
		expected Plan
	}{
		{
			name:     "unprotected page",
			status:   Status{},
			expected: Plan{TypeMove: {Level: LevelSysop, Expiry: At(target)}},
		},
		{
			name: "indefinitely move protected",
			status: Status{
				{Type: TypeMove, Level: LevelSysop, Expiry: Infinite},
			},
			expected: Plan{},
		},
		{
			name: "move protection expires too early",
			status: Status{
				{Type: TypeMove, Level: LevelSysop, Expiry: At(earlier)},
			},
			expected: Plan{TypeMove: {Level: LevelSysop, Expiry: At(target)}},
		},
		{
			name: "move protection expires exactly on time",
			status: Status{
				{Type: TypeMove, Level: LevelSysop, Expiry: At(target)},
			},
			expected: Plan{},
		},
		{
			name: "move protection outlasts target",
			status: Status{
				{Type: TypeMove, Level: LevelSysop, Expiry: At(later)},
			},
			expected: Plan{},
		},
		{
			name: "move protection below sysop",
			status: Status{
				{Type: TypeMove, Level: "extendedconfirmed", Expiry: Infinite},
			},
			expected: Plan{TypeMove: {Level: LevelSysop, Expiry: At(target)}},
		},
		{
			name: "edit protection ignored for articles",
			status: Status{
				{Type: TypeEdit, Level: "autoconfirmed", Expiry: Infinite},
				{Type: TypeMove, Level: LevelSysop, Expiry: Infinite},
			},
			expected: Plan{},
		},
		{
			name:     "unprotected redirect",
			status:   Status{},
			redirect: true,
			expected: Plan{
				TypeMove: {Level: LevelSysop, Expiry: At(target)},
				TypeEdit: {Level: LevelSysop, Expiry: At(target)},
			},
		},
		{
			name: "redirect with weak edit protection",
			status: Status{
				{Type: TypeEdit, Level: "autoconfirmed", Expiry: Infinite},
				{Type: TypeMove, Level: LevelSysop, Expiry: Infinite},
			},
			redirect: true,
			expected: Plan{TypeEdit: {Level: LevelSysop, Expiry: At(target)}},
		},
		{
			name: "cascading protection does not count",
			status: Status{
				{Type: TypeMove, Level: LevelSysop, Expiry: Infinite, Source: "Main Page"},
			},
			expected: Plan{TypeMove: {Level: LevelSysop, Expiry: At(target)}},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			plan := ShouldProtect(test.status, target, test.redirect)
			if diff := cmp.Diff(test.expected, plan); diff != "" {
				t.Fatalf("unexpected plan (-want +got):\n%s", diff)
			}
		})
	}
}

func TestShouldProtectUpload(t *testing.T) {
	testCases := []struct {
		status   Status
		expected Plan
	}{
		{
			status:   Status{},
			expected: Plan{TypeUpload: {Level: LevelSysop, Expiry: Infinite}},
		},
		{
			status: Status{
				{Type: TypeUpload, Level: "autoconfirmed", Expiry: Infinite},
			},
			expected: Plan{TypeUpload: {Level: LevelSysop, Expiry: Infinite}},
		},
		{
			status: Status{
				{Type: TypeUpload, Level: LevelSysop, Expiry: At(target)},
			},
			expected: Plan{TypeUpload: {Level: LevelSysop, Expiry: Infinite}},
		},
		{
			status: Status{
				{Type: TypeUpload, Level: LevelSysop, Expiry: Infinite},
			},
			expected: Plan{},
		},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, ShouldProtectUpload(test.status))
	}
}

func TestBuildRequest(t *testing.T) {
	status := Status{
		{Type: TypeEdit, Level: LevelSysop, Expiry: Infinite, Cascade: true},
		{Type: TypeMove, Level: "autoconfirmed", Expiry: Infinite},
		{Type: "aft", Level: "autoconfirmed", Expiry: Infinite},
		{Type: TypeUpload, Level: LevelSysop, Expiry: Infinite, Source: "Main Page"},
	}
	plan := ShouldProtect(status, target, false)

	req := BuildRequest(status, plan)
	require.Equal(t, []string{"move=sysop", "edit=sysop"}, req.Protections)
	require.Equal(t, []string{"2020-02-06T00:00:00Z", "infinity"}, req.Expiries)
	require.True(t, req.Cascade)

	req = BuildRequest(Status{}, Plan{
		TypeMove: {Level: LevelSysop, Expiry: At(target)},
		TypeEdit: {Level: LevelSysop, Expiry: At(target)},
	})
	require.Equal(t, []string{"edit=sysop", "move=sysop"}, req.Protections)
	require.False(t, req.Cascade)
}

func TestStatusFromJSON(t *testing.T) {
	body := `[
		{"type": "edit", "level": "autoconfirmed", "expiry": "infinity"},
		{"type": "move", "level": "sysop", "expiry": "2020-02-06T00:00:00Z", "cascade": true},
		{"type": "edit", "level": "sysop", "expiry": "infinite", "source": "Main Page"}
	]`

	var status Status
	err := json.Unmarshal([]byte(body), &status)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, status, 3)

	edit, ok := status.Get(TypeEdit)
	require.True(t, ok)
	require.Equal(t, "autoconfirmed", edit.Level)
	require.True(t, edit.Expiry.Infinite)

	move, ok := status.Get(TypeMove)
	require.True(t, ok)
	require.True(t, move.Cascade)
	require.Equal(t, target, move.Expiry.Time)

	require.True(t, status[2].Expiry.Infinite)
	require.Equal(t, "Main Page", status[2].Source)

	_, err = ParseExpiry("next tuesday")
	require.Error(t, err)
}
