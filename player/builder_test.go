package player_test

import (
	"strings"
	"testing"

	"github.com/comalice/embedx/player"
)

func noop(*player.Frame, string) {}

func TestSceneBuilder(t *testing.T) {
	b := player.NewScene("level1")
	b.Entity("Cube").On("Spin", noop).On("Stop", noop)
	b.Entity("Camera").On("Zoom", noop)
	b.Entity("Cube").On("Jump", noop)

	scene, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if scene.Bundle != "level1" {
		t.Errorf("bundle = %q", scene.Bundle)
	}
	if got := b.Entities(); strings.Join(got, ",") != "Cube,Camera" {
		t.Errorf("entities = %v", got)
	}
	if n := len(scene.Entities["Cube"].Methods); n != 3 {
		t.Errorf("Cube methods = %d, want 3", n)
	}
}

func TestSceneBuilderValidation(t *testing.T) {
	tests := []struct {
		name  string
		build func() *player.SceneBuilder
		want  string
	}{
		{
			name: "duplicate method",
			build: func() *player.SceneBuilder {
				return player.NewScene("s").Entity("A").On("m", noop).On("m", noop).Done()
			},
			want: "duplicate method m",
		},
		{
			name: "nil handler",
			build: func() *player.SceneBuilder {
				return player.NewScene("s").Entity("A").On("m", nil).Done()
			},
			want: "nil handler",
		},
		{
			name: "no methods",
			build: func() *player.SceneBuilder {
				b := player.NewScene("s")
				b.Entity("Empty")
				return b
			},
			want: "has no methods",
		},
		{
			name: "empty entity name",
			build: func() *player.SceneBuilder {
				return player.NewScene("s").Entity("").On("m", noop).Done()
			},
			want: "empty name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Build()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestMustBuildPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	player.NewScene("s").Entity("A").Done().MustBuild()
}
