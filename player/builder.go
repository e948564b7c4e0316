package player

import (
	"errors"
	"fmt"
)

// SceneBuilder provides a fluent API for assembling a Scene.
type SceneBuilder struct {
	scene *Scene
	order []string
	errs  []error
}

// EntityBuilder provides fluent methods for configuring one entity.
type EntityBuilder struct {
	b      *SceneBuilder
	entity *Entity
}

// NewScene creates a builder for the scene loaded for bundle.
func NewScene(bundle string) *SceneBuilder {
	return &SceneBuilder{
		scene: &Scene{
			Bundle:   bundle,
			Entities: make(map[string]*Entity),
		},
	}
}

// Entity creates or retrieves an entity by name.
func (b *SceneBuilder) Entity(name string) *EntityBuilder {
	e, ok := b.scene.Entities[name]
	if !ok {
		e = &Entity{Name: name, Methods: make(map[string]Handler)}
		b.scene.Entities[name] = e
		b.order = append(b.order, name)
	}
	return &EntityBuilder{b: b, entity: e}
}

// OnLoad sets the function run on the launch tick.
func (b *SceneBuilder) OnLoad(fn func(f *Frame)) *SceneBuilder {
	b.scene.OnLoad = fn
	return b
}

// OnDeepLink sets the deep-link handler.
func (b *SceneBuilder) OnDeepLink(fn func(f *Frame, url string)) *SceneBuilder {
	b.scene.OnDeepLink = fn
	return b
}

// Entities returns entity names in declaration order.
func (b *SceneBuilder) Entities() []string {
	return append([]string(nil), b.order...)
}

// Build validates the scene and returns it.
func (b *SceneBuilder) Build() (*Scene, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b.scene, nil
}

// MustBuild is Build for scenes declared at package level.
func (b *SceneBuilder) MustBuild() *Scene {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func (b *SceneBuilder) validate() error {
	errs := append([]error(nil), b.errs...)
	for _, name := range b.order {
		if name == "" {
			errs = append(errs, errors.New("entity with empty name"))
			continue
		}
		if len(b.scene.Entities[name].Methods) == 0 {
			errs = append(errs, fmt.Errorf("entity %s has no methods", name))
		}
	}
	return errors.Join(errs...)
}

// On registers h for method. Registering a method twice is an error.
func (eb *EntityBuilder) On(method string, h Handler) *EntityBuilder {
	switch {
	case method == "":
		eb.b.errs = append(eb.b.errs, fmt.Errorf("entity %s: empty method name", eb.entity.Name))
	case h == nil:
		eb.b.errs = append(eb.b.errs, fmt.Errorf("entity %s: nil handler for %s", eb.entity.Name, method))
	case eb.entity.Methods[method] != nil:
		eb.b.errs = append(eb.b.errs, fmt.Errorf("entity %s: duplicate method %s", eb.entity.Name, method))
	default:
		eb.entity.Methods[method] = h
	}
	return eb
}

// Done returns to the scene builder.
func (eb *EntityBuilder) Done() *SceneBuilder {
	return eb.b
}
