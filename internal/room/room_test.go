package room

import (
	"strings"
	"testing"

	"trail-arena/internal/game"
)

func TestRoomPlayerIDs(t *testing.T) {
	r := New("arena")
	a := game.NewPlayer(nil, "ann", "#ff9900")
	b := game.NewPlayer(nil, "ben", "#33ccff")

	r.AddPlayer(a)
	r.AddPlayer(b)

	if a.ID != 1 || b.ID != 2 {
		t.Errorf("player ids = %d, %d, want 1, 2", a.ID, b.ID)
	}

	r.RemovePlayer(a)
	c := game.NewPlayer(nil, "cleo", "#ffcc00")
	r.AddPlayer(c)
	if c.ID != 3 {
		t.Errorf("ids must never be reused: got %d, want 3", c.ID)
	}
}

func TestRoomNameAvailability(t *testing.T) {
	r := New("arena")
	p := game.NewPlayer(nil, "Ann", "#ff9900")
	r.AddPlayer(p)

	if r.IsNameAvailable("ann") {
		t.Error("name check must be case-insensitive")
	}
	if !r.IsNameAvailable("ben") {
		t.Error("unused name reported taken")
	}
}

func TestRoomReadyGating(t *testing.T) {
	r := New("arena")
	if r.IsReady() {
		t.Error("empty room reported ready")
	}

	a := game.NewPlayer(nil, "ann", "#ff9900")
	b := game.NewPlayer(nil, "ben", "#33ccff")
	r.AddPlayer(a)
	r.AddPlayer(b)

	a.ToggleReady()
	if r.IsReady() {
		t.Error("room ready with one player unready")
	}

	b.ToggleReady()
	if !r.IsReady() {
		t.Error("room unready with everyone ready")
	}
}

func TestRoomGameLifecycle(t *testing.T) {
	r := New("arena")
	a := game.NewPlayer(nil, "ann", "#ff9900")
	r.AddPlayer(a)
	a.ToggleReady()

	g := r.NewGame()
	if g == nil {
		t.Fatal("NewGame returned nil on an idle room")
	}
	if r.NewGame() != nil {
		t.Fatal("second NewGame did not refuse while one is running")
	}

	r.CloseGame()
	if r.Game != nil {
		t.Error("game reference survived CloseGame")
	}
	if a.Ready || a.Avatar != nil {
		t.Error("player not reset after CloseGame")
	}
}

func TestConfigPassword(t *testing.T) {
	r := New("arena")
	c := r.Config

	if !c.Allow("") {
		t.Fatal("open room refused a join")
	}

	c.SetOpen(false)
	if len(c.Password) != 4 {
		t.Fatalf("password %q, want four digits", c.Password)
	}
	for _, digit := range c.Password {
		if digit < '1' || digit > '9' {
			t.Fatalf("password %q contains digit outside 1-9", c.Password)
		}
	}

	if c.Allow("wrong") {
		t.Error("closed room accepted a wrong password")
	}
	if !c.Allow(c.Password) {
		t.Error("closed room refused its own password")
	}
}

func TestConfigMaxScore(t *testing.T) {
	r := New("arena")
	for _, name := range []string{"a", "b", "c", "d"} {
		r.AddPlayer(game.NewPlayer(nil, name, "#ff9900"))
	}

	if got := r.Config.GetMaxScore(); got != 30 {
		t.Errorf("auto max score = %d for 4 players, want 30", got)
	}

	r.Config.SetMaxScore(7)
	if got := r.Config.GetMaxScore(); got != 7 {
		t.Errorf("custom max score = %d, want 7", got)
	}

	r.Config.SetMaxScore(0)
	if got := r.Config.GetMaxScore(); got != 30 {
		t.Errorf("max score = %d after reset, want auto 30", got)
	}
}

func TestConfigMaxScoreSolo(t *testing.T) {
	r := New("arena")
	r.AddPlayer(game.NewPlayer(nil, "solo", "#ff9900"))

	if got := r.Config.GetMaxScore(); got != 1 {
		t.Errorf("solo auto max score = %d, want 1", got)
	}
}

func TestConfigVariables(t *testing.T) {
	r := New("arena")
	c := r.Config

	if !c.SetVariable("bonusRate", 0.5) {
		t.Error("valid bonus rate rejected")
	}
	if c.SetVariable("bonusRate", 1.5) {
		t.Error("out-of-range bonus rate accepted")
	}
	if c.SetVariable("gravity", 1) {
		t.Error("unknown variable accepted")
	}
	if c.BonusRate != 0.5 {
		t.Errorf("bonus rate = %v, want 0.5", c.BonusRate)
	}
}

func TestConfigBonusToggles(t *testing.T) {
	r := New("arena")
	c := r.Config

	if len(c.EnabledBonuses()) != len(game.AllBonusKinds) {
		t.Fatal("not all bonuses enabled by default")
	}

	if !c.SetBonus("BonusSelfFast", false) {
		t.Fatal("known bonus name rejected")
	}
	if c.SetBonus("BonusWarpDrive", false) {
		t.Fatal("unknown bonus name accepted")
	}

	for _, kind := range c.EnabledBonuses() {
		if kind == game.BonusSelfFast {
			t.Error("disabled bonus still enabled")
		}
	}
}

func TestChatHistory(t *testing.T) {
	var chat Chat
	for i := 0; i < 150; i++ {
		chat.Add(NewMessage(1, "hello"))
	}
	if got := len(chat.Messages()); got != 100 {
		t.Errorf("history holds %d messages, want 100", got)
	}
}

func TestMessageTruncation(t *testing.T) {
	long := strings.Repeat("x", 200)
	m := NewMessage(1, long)
	if len(m.Content) != MaxMessageLength {
		t.Errorf("content length = %d, want %d", len(m.Content), MaxMessageLength)
	}
}

func TestMessageTruncationKeepsRunesWhole(t *testing.T) {
	long := strings.Repeat("é", 150)
	m := NewMessage(1, long)
	runes := []rune(m.Content)
	if len(runes) != MaxMessageLength {
		t.Errorf("content holds %d runes, want %d", len(runes), MaxMessageLength)
	}
	for _, r := range runes {
		if r != 'é' {
			t.Fatalf("truncation corrupted content: found %q", r)
		}
	}
}

func TestRepositoryUniqueNames(t *testing.T) {
	repo := NewRepository()

	if repo.Create("arena") == nil {
		t.Fatal("fresh name rejected")
	}
	if repo.Create("arena") != nil {
		t.Fatal("duplicate name accepted")
	}

	generated := repo.Create("")
	if generated == nil {
		t.Fatal("generated room is nil")
	}
	if !strings.HasPrefix(generated.Name, "The ") {
		t.Errorf("generated name %q, want the random pattern", generated.Name)
	}

	if got := len(repo.All()); got != 2 {
		t.Errorf("repository holds %d rooms, want 2", got)
	}
}

func TestRepositoryRemove(t *testing.T) {
	repo := NewRepository()
	r := repo.Create("arena")

	closed := 0
	repo.OnClose.Subscribe(func(*Room) { closed++ })

	repo.Remove(r)
	if repo.Get("arena") != nil {
		t.Error("removed room still resolvable")
	}
	if closed != 1 {
		t.Errorf("close announced %d times, want 1", closed)
	}

	repo.Remove(r) // second removal is a no-op
	if closed != 1 {
		t.Errorf("double removal announced close again")
	}
}
