package state

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/fundcrm/internal/models"
)

func testVC(id, name string) models.VC {
	return models.VC{ID: id, Name: name, Status: models.StatusNotContacted, MeetingNotes: []models.MeetingNote{}}
}

func testRound(id, name string) models.Round {
	return models.Round{ID: id, Name: name, ValuationCap: 5_000_000, TargetAmount: 1_000_000}
}

// seeded returns a state with rounds r1, r2 and VCs a (in r1), b (in r2), c (unsorted).
func seeded(t *testing.T) models.State {
	t.Helper()
	s := models.NewState()
	s = mustApply(t, s, AddRound{Round: testRound("r1", "Seed")})
	s = mustApply(t, s, AddRound{Round: testRound("r2", "Series A")})
	s = mustApply(t, s, AddVC{VC: testVC("a", "Alpha"), RoundID: "r1"})
	s = mustApply(t, s, AddVC{VC: testVC("b", "Beta"), RoundID: "r2"})
	s = mustApply(t, s, AddVC{VC: testVC("c", "Gamma")})
	return s
}

func mustApply(t *testing.T, s models.State, a Action) models.State {
	t.Helper()
	next, ev := Apply(s, a)
	require.False(t, ev.IsZero(), "expected %s to take effect", a.Kind())
	require.NotEqual(t, LevelError, ev.Level, ev.Message)
	return next
}

// placements counts how many containers hold each VC id.
func placements(s models.State) map[string]int {
	counts := make(map[string]int)
	for _, r := range s.Rounds {
		for _, id := range r.VCs {
			counts[id]++
		}
	}
	for _, id := range s.UnsortedVCs {
		counts[id]++
	}
	return counts
}

func assertSinglePlacement(t *testing.T, s models.State) {
	t.Helper()
	for id, n := range placements(s) {
		assert.Equal(t, 1, n, "vc %s appears in %d containers", id, n)
	}
}

func TestApply_AddVC(t *testing.T) {
	s := seeded(t)
	assert.Equal(t, []string{"a"}, s.Rounds[0].VCs)
	assert.Equal(t, []string{"b"}, s.Rounds[1].VCs)
	assert.Equal(t, []string{"c"}, s.UnsortedVCs)
	assert.Len(t, s.VCs, 3)

	// duplicate id is a no-op
	next, ev := Apply(s, AddVC{VC: testVC("a", "Other")})
	assert.True(t, ev.IsZero())
	assert.Equal(t, s, next)
}

func TestApply_AddVC_StripsAmountUnlessFinalized(t *testing.T) {
	vc := testVC("x", "X")
	vc.PurchaseAmount = models.Amount(100)
	s := mustApply(t, models.NewState(), AddVC{VC: vc})
	assert.Nil(t, s.VCs["x"].PurchaseAmount)
}

func TestApply_UnknownActionIsNoOp(t *testing.T) {
	s := seeded(t)
	next, ev := Apply(s, nil)
	assert.True(t, ev.IsZero())
	assert.Equal(t, s, next)

	next, ev = Apply(s, &AddVC{VC: testVC("z", "Z")})
	assert.True(t, ev.IsZero())
	assert.Equal(t, s, next)
}

func TestApply_MissingEntitiesAreNoOps(t *testing.T) {
	s := seeded(t)
	actions := []Action{
		UpdateVC{VC: testVC("missing", "M")},
		SetVCStatus{VCID: "missing", Status: models.StatusContacted},
		DeleteVC{VCID: "missing"},
		DuplicateVC{VCID: "missing", NewID: "n"},
		AddVCToRound{VCID: "a", RoundID: "missing"},
		AddVCToRound{VCID: "missing", RoundID: "r1"},
		RemoveVCFromRound{VCID: "c", RoundID: "r1"},
		MoveVC{VCID: "a", FromRoundID: "r1", ToRoundID: "missing"},
		MoveVC{VCID: "missing", ToRoundID: "r1"},
		UpdateRound{Round: testRound("missing", "M")},
		DeleteRound{RoundID: "missing"},
		ReorderVCs{RoundID: "missing"},
		CycleVisibility{RoundID: "missing"},
		AddMeetingNote{VCID: "missing", Note: models.MeetingNote{ID: "n1"}},
		UpdateMeetingNote{VCID: "a", NoteID: "missing", Content: "x"},
		DeleteMeetingNote{VCID: "a", NoteID: "missing"},
	}
	for _, a := range actions {
		next, ev := Apply(s, a)
		assert.True(t, ev.IsZero(), "%s: %s", a.Kind(), ev.Message)
		assert.Equal(t, s, next, a.Kind())
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	s := seeded(t)
	s = mustApply(t, s, AddMeetingNote{VCID: "a", Note: models.MeetingNote{ID: "n1", Content: "intro"}})
	snapshot := s.Clone()

	actions := []Action{
		AddVC{VC: testVC("d", "Delta"), RoundID: "r1"},
		UpdateVC{VC: models.VC{ID: "a", Name: "Alpha Prime"}},
		SetVCStatus{VCID: "a", Status: models.StatusFinalized, PurchaseAmount: models.Amount(250_000)},
		DeleteVC{VCID: "b"},
		DuplicateVC{VCID: "a", NewID: "a2"},
		AddVCToRound{VCID: "c", RoundID: "r1"},
		RemoveVCFromRound{VCID: "a", RoundID: "r1"},
		MoveVC{VCID: "a", FromRoundID: "r1", ToRoundID: "r2", Index: 0},
		UpdateRound{Round: models.Round{ID: "r1", Name: "Pre-seed", ValuationCap: 1, TargetAmount: 1}},
		DeleteRound{RoundID: "r1"},
		ReorderRounds{RoundIDs: []string{"r2", "r1"}},
		CycleVisibility{RoundID: "r1"},
		UpdateMeetingNote{VCID: "a", NoteID: "n1", Content: "changed"},
		DeleteMeetingNote{VCID: "a", NoteID: "n1"},
		SetScratchpad{Text: "todo"},
	}
	for _, a := range actions {
		_, _ = Apply(s, a)
		require.Equal(t, snapshot, s, "%s mutated its input", a.Kind())
	}
}

func TestApply_AddVCToRound_Idempotent(t *testing.T) {
	s := seeded(t)
	next, ev := Apply(s, AddVCToRound{VCID: "a", RoundID: "r1"})
	assert.True(t, ev.IsZero())
	assert.Equal(t, s, next)
}

func TestApply_AddVCToRound_MovesOutOfOtherContainers(t *testing.T) {
	s := seeded(t)
	s = mustApply(t, s, AddVCToRound{VCID: "a", RoundID: "r2"})
	assert.Empty(t, s.Rounds[0].VCs)
	assert.Equal(t, []string{"b", "a"}, s.Rounds[1].VCs)

	s = mustApply(t, s, AddVCToRound{VCID: "c", RoundID: "r1"})
	assert.Empty(t, s.UnsortedVCs)
	assertSinglePlacement(t, s)
}

func TestApply_RemoveVCFromRound_NoDuplicateUnsorted(t *testing.T) {
	s := seeded(t)
	// force a corrupt state where a is both in r1 and unsorted
	corrupt := s.Clone()
	corrupt.UnsortedVCs = append(corrupt.UnsortedVCs, "a")

	next := mustApply(t, corrupt, RemoveVCFromRound{VCID: "a", RoundID: "r1"})
	assert.Equal(t, []string{"c", "a"}, next.UnsortedVCs)
	assertSinglePlacement(t, next)
}

func TestApply_MoveVC(t *testing.T) {
	s := seeded(t)

	s = mustApply(t, s, MoveVC{VCID: "c", ToRoundID: "r1", Index: 0})
	assert.Equal(t, []string{"c", "a"}, s.Rounds[0].VCs)
	assert.Empty(t, s.UnsortedVCs)

	s = mustApply(t, s, MoveVC{VCID: "a", FromRoundID: "r1", ToRoundID: "r2", Index: -1})
	assert.Equal(t, []string{"c"}, s.Rounds[0].VCs)
	assert.Equal(t, []string{"b", "a"}, s.Rounds[1].VCs)

	s = mustApply(t, s, MoveVC{VCID: "b", FromRoundID: "r2", ToRoundID: "", Index: -1})
	assert.Equal(t, []string{"b"}, s.UnsortedVCs)
	assertSinglePlacement(t, s)

	// moving to the same spot is a no-op
	next, ev := Apply(s, MoveVC{VCID: "b", Index: 0})
	assert.True(t, ev.IsZero())
	assert.Equal(t, s, next)
}

func TestApply_SinglePlacementUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := seeded(t)
	s = mustApply(t, s, AddRound{Round: testRound("r3", "Bridge")})
	for i := 0; i < 10; i++ {
		s = mustApply(t, s, AddVC{VC: testVC(fmt.Sprintf("v%d", i), "V")})
	}
	ids := make([]string, 0, len(s.VCs))
	for id := range s.VCs {
		ids = append(ids, id)
	}
	rounds := []string{"", "r1", "r2", "r3"}

	for i := 0; i < 500; i++ {
		vc := ids[rng.Intn(len(ids))]
		round := rounds[rng.Intn(len(rounds))]
		var a Action
		switch rng.Intn(4) {
		case 0:
			a = AddVCToRound{VCID: vc, RoundID: round}
		case 1:
			a = RemoveVCFromRound{VCID: vc, RoundID: round}
		case 2:
			a = MoveVC{VCID: vc, ToRoundID: round, Index: rng.Intn(4) - 1}
		default:
			from, _ := s.ContainerOf(vc)
			a = MoveVC{VCID: vc, FromRoundID: from, ToRoundID: round, Index: -1}
		}
		s, _ = Apply(s, a)
		assertSinglePlacement(t, s)
	}
	assert.Len(t, placements(s), len(ids))
}

func TestApply_SetVCStatus(t *testing.T) {
	s := seeded(t)

	next, ev := Apply(s, SetVCStatus{VCID: "a", Status: models.StatusFinalized})
	assert.Equal(t, LevelError, ev.Level)
	assert.Equal(t, s, next)

	s = mustApply(t, s, SetVCStatus{VCID: "a", Status: models.StatusFinalized, PurchaseAmount: models.Amount(500_000)})
	amt, ok := s.VCs["a"].Commitment()
	require.True(t, ok)
	assert.Equal(t, 500_000.0, amt)

	s = mustApply(t, s, SetVCStatus{VCID: "a", Status: models.StatusLikelyPassed, PurchaseAmount: models.Amount(1)})
	assert.Nil(t, s.VCs["a"].PurchaseAmount)

	next, ev = Apply(s, SetVCStatus{VCID: "a", Status: "bogus"})
	assert.True(t, ev.IsZero())
	assert.Equal(t, s, next)
}

func TestApply_BanishKeepsPlacement(t *testing.T) {
	s := seeded(t)
	s = mustApply(t, s, SetVCStatus{VCID: "a", Status: models.StatusBanished})
	assert.Equal(t, models.StatusBanished, s.VCs["a"].Status)
	assert.Equal(t, []string{"a"}, s.Rounds[0].VCs)
}

func TestApply_DeleteVC(t *testing.T) {
	s := seeded(t)
	s.ExpandedVCIDs = []string{"a", "b"}
	s = mustApply(t, s, DeleteVC{VCID: "a"})
	assert.NotContains(t, s.VCs, "a")
	assert.Empty(t, s.Rounds[0].VCs)
	assert.Equal(t, []string{"b"}, s.ExpandedVCIDs)

	next, ev := Apply(s, DeleteVC{VCID: "a"})
	assert.True(t, ev.IsZero())
	assert.Equal(t, s, next)
}

func TestApply_DuplicateVC(t *testing.T) {
	s := seeded(t)
	s = mustApply(t, s, AddVC{VC: testVC("d", "Delta"), RoundID: "r1"})
	s = mustApply(t, s, AddMeetingNote{VCID: "a", Note: models.MeetingNote{ID: "n1", Content: "intro"}})
	s = mustApply(t, s, DuplicateVC{VCID: "a", NewID: "a2"})

	assert.Equal(t, []string{"a", "a2", "d"}, s.Rounds[0].VCs)
	dup := s.VCs["a2"]
	assert.Equal(t, "Alpha (copy)", dup.Name)
	require.Len(t, dup.MeetingNotes, 1)
	assert.Equal(t, "a2:n1", dup.MeetingNotes[0].ID)
	assert.Equal(t, "n1", s.VCs["a"].MeetingNotes[0].ID)

	s = mustApply(t, s, DuplicateVC{VCID: "c", NewID: "c2"})
	assert.Equal(t, []string{"c", "c2"}, s.UnsortedVCs)
	assertSinglePlacement(t, s)
}

func TestApply_AddRound(t *testing.T) {
	s := seeded(t)
	r := testRound("r3", "Bridge")
	r.VCs = []string{"a"}
	r.Order = 99
	s = mustApply(t, s, AddRound{Round: r})

	got := s.Rounds[2]
	assert.Empty(t, got.VCs)
	assert.Equal(t, 2, got.Order)
	assert.Equal(t, models.VisibilityExpanded, got.Visibility)
	assert.True(t, got.IsExpanded)
}

func TestApply_DeleteRound_MigratesToUnsortedAndIsIdempotent(t *testing.T) {
	s := seeded(t)
	s = mustApply(t, s, AddVC{VC: testVC("d", "Delta"), RoundID: "r1"})

	s = mustApply(t, s, DeleteRound{RoundID: "r1"})
	require.Len(t, s.Rounds, 1)
	assert.Equal(t, "r2", s.Rounds[0].ID)
	assert.Equal(t, 0, s.Rounds[0].Order)
	assert.Equal(t, []string{"c", "a", "d"}, s.UnsortedVCs)
	assert.Len(t, s.VCs, 4)
	assertSinglePlacement(t, s)

	next, ev := Apply(s, DeleteRound{RoundID: "r1"})
	assert.True(t, ev.IsZero())
	assert.Equal(t, s, next)
}

func TestApply_ReorderRounds(t *testing.T) {
	s := seeded(t)
	s = mustApply(t, s, AddRound{Round: testRound("r3", "Bridge")})
	s = mustApply(t, s, ReorderRounds{RoundIDs: []string{"r3", "r1"}})

	ids := []string{s.Rounds[0].ID, s.Rounds[1].ID, s.Rounds[2].ID}
	assert.Equal(t, []string{"r3", "r1", "r2"}, ids)
	for i, r := range s.Rounds {
		assert.Equal(t, i, r.Order)
	}

	next, ev := Apply(s, ReorderRounds{RoundIDs: []string{"r3", "r1", "r2"}})
	assert.True(t, ev.IsZero())
	assert.Equal(t, s, next)
}

func TestApply_ReorderVCs(t *testing.T) {
	s := seeded(t)
	s = mustApply(t, s, AddVC{VC: testVC("d", "Delta"), RoundID: "r1"})
	s = mustApply(t, s, AddVC{VC: testVC("e", "Epsilon"), RoundID: "r1"})

	s = mustApply(t, s, ReorderVCs{RoundID: "r1", VCIDs: []string{"e", "c", "a"}})
	assert.Equal(t, []string{"e", "a", "d"}, s.Rounds[0].VCs)
	assertSinglePlacement(t, s)
}

func TestApply_CycleVisibilityIsThreeCycle(t *testing.T) {
	s := seeded(t)
	start := s.Rounds[0]

	s1 := mustApply(t, s, CycleVisibility{RoundID: "r1"})
	assert.Equal(t, models.VisibilityCollapsedAdvanced, s1.Rounds[0].Visibility)
	assert.False(t, s1.Rounds[0].IsExpanded)

	s2 := mustApply(t, s1, CycleVisibility{RoundID: "r1"})
	assert.Equal(t, models.VisibilityCollapsedHidden, s2.Rounds[0].Visibility)

	s3 := mustApply(t, s2, CycleVisibility{RoundID: "r1"})
	assert.Equal(t, start, s3.Rounds[0])
}

func TestApply_MeetingNotes(t *testing.T) {
	s := seeded(t)
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s = mustApply(t, s, AddMeetingNote{VCID: "a", Note: models.MeetingNote{ID: "n1", Timestamp: ts, Content: "first call"}})
	s = mustApply(t, s, AddMeetingNote{VCID: "a", Note: models.MeetingNote{ID: "n2", Timestamp: ts, Content: "partner meeting"}})

	next, ev := Apply(s, AddMeetingNote{VCID: "a", Note: models.MeetingNote{ID: "n1"}})
	assert.True(t, ev.IsZero())
	assert.Equal(t, s, next)

	s = mustApply(t, s, UpdateMeetingNote{VCID: "a", NoteID: "n1", Content: "first call, warm"})
	assert.Equal(t, "first call, warm", s.VCs["a"].MeetingNotes[0].Content)

	s = mustApply(t, s, DeleteMeetingNote{VCID: "a", NoteID: "n1"})
	require.Len(t, s.VCs["a"].MeetingNotes, 1)
	assert.Equal(t, "n2", s.VCs["a"].MeetingNotes[0].ID)
}

func TestApply_ScratchpadAndInitialize(t *testing.T) {
	s := mustApply(t, models.NewState(), SetScratchpad{Text: "call Acme"})
	assert.Equal(t, "call Acme", s.Scratchpad)

	_, ev := Apply(s, SetScratchpad{Text: "call Acme"})
	assert.True(t, ev.IsZero())

	loaded := seeded(t)
	got := mustApply(t, s, Initialize{State: loaded})
	assert.Equal(t, loaded, got)
}

func TestVisibleVCIDs(t *testing.T) {
	s := seeded(t)
	s = mustApply(t, s, AddVC{VC: testVC("d", "Delta"), RoundID: "r1"})
	s = mustApply(t, s, SetVCStatus{VCID: "d", Status: models.StatusCloseToBuying})

	r := s.Rounds[0]
	assert.Equal(t, []string{"a", "d"}, VisibleVCIDs(r, s.VCs))
	r.Visibility = models.VisibilityCollapsedAdvanced
	assert.Equal(t, []string{"d"}, VisibleVCIDs(r, s.VCs))
	r.Visibility = models.VisibilityCollapsedHidden
	assert.Empty(t, VisibleVCIDs(r, s.VCs))
}
