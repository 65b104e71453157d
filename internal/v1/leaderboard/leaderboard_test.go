package leaderboard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/parlorlive/gamehost/internal/v1/game"
)

func TestRecordAndTop(t *testing.T) {
	s := NewStore()
	s.RecordWin(game.FamilyChess, "alice")
	s.RecordWin(game.FamilyChess, "alice")
	s.RecordWin(game.FamilyChess, "bob")
	s.RecordWin(game.FamilyBigTwo, "carol")

	top := s.Top(game.FamilyChess, 10)
	assert.Equal(t, []Entry{{Name: "alice", Wins: 2}, {Name: "bob", Wins: 1}}, top)
}

func TestTopAggregatesAcrossFamilies(t *testing.T) {
	s := NewStore()
	s.RecordWin(game.FamilyChess, "alice")
	s.RecordWin(game.FamilyBigTwo, "alice")
	s.RecordWin(game.FamilyBingo, "bob")

	top := s.Top("", 10)
	assert.Equal(t, []Entry{{Name: "alice", Wins: 2}, {Name: "bob", Wins: 1}}, top)
}

func TestTopTiesBreakByName(t *testing.T) {
	s := NewStore()
	s.RecordWin(game.FamilyChess, "zoe")
	s.RecordWin(game.FamilyChess, "amy")

	top := s.Top(game.FamilyChess, 10)
	assert.Equal(t, []Entry{{Name: "amy", Wins: 1}, {Name: "zoe", Wins: 1}}, top)
}

func TestTopHonorsLimit(t *testing.T) {
	s := NewStore()
	s.RecordWin(game.FamilyChess, "a")
	s.RecordWin(game.FamilyChess, "b")
	s.RecordWin(game.FamilyChess, "c")

	assert.Len(t, s.Top(game.FamilyChess, 2), 2)
	assert.Len(t, s.Top(game.FamilyChess, 0), 3, "zero means no limit")
}

func TestEmptyNameIgnored(t *testing.T) {
	s := NewStore()
	s.RecordWin(game.FamilyChess, "")
	assert.Empty(t, s.Top(game.FamilyChess, 10))
}

func TestConcurrentRecording(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.RecordWin(game.FamilyBoggle, "alice")
			}
		}()
	}
	wg.Wait()

	top := s.Top(game.FamilyBoggle, 1)
	assert.Equal(t, 1600, top[0].Wins)
}
