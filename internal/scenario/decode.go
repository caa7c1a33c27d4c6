package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Format identifies a scenario document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatForExt maps a file extension (without dot) to a document format.
func FormatForExt(ext string) (Format, bool) {
	switch ext {
	case "yaml", "yml":
		return FormatYAML, true
	case "json":
		return FormatJSON, true
	default:
		return "", false
	}
}

// Decode parses a scenario document into the typed model.
//
// Decoding is strict: unknown fields are rejected (catches typos like
// "choice:" vs "choices:"), and effect tags outside the closed variant set
// fail here rather than surfacing as nil at traversal time. Callers should
// run Validate first for schema-level diagnostics with field positions.
//
// All player-visible text is normalized to NFC so snapshots and golden
// traces compare byte-stable across authoring tools.
func Decode(data []byte, format Format) (*Scenario, error) {
	var doc scenarioDoc

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	return doc.toScenario()
}

// Document shapes. These mirror the wire format exactly; conversion to the
// exported model happens in one pass so a half-decoded scenario is never
// observable.

type scenarioDoc struct {
	ID     string     `yaml:"id" json:"id"`
	Title  string     `yaml:"title" json:"title"`
	Scenes []sceneDoc `yaml:"scenes" json:"scenes"`
}

type sceneDoc struct {
	ID         string          `yaml:"id" json:"id"`
	Background string          `yaml:"background,omitempty" json:"background,omitempty"`
	BGM        *bgmDoc         `yaml:"bgm,omitempty" json:"bgm,omitempty"`
	SFX        string          `yaml:"sfx,omitempty" json:"sfx,omitempty"`
	Characters []characterDoc  `yaml:"characters,omitempty" json:"characters,omitempty"`
	TextBlocks []textBlockDoc  `yaml:"textBlocks,omitempty" json:"textBlocks,omitempty"`
	Choices    []choiceDoc     `yaml:"choices,omitempty" json:"choices,omitempty"`
	Next       string          `yaml:"next,omitempty" json:"next,omitempty"`
	Transition *transitionDoc  `yaml:"transition,omitempty" json:"transition,omitempty"`
}

type characterDoc struct {
	Name       string `yaml:"name" json:"name"`
	Position   string `yaml:"position" json:"position"`
	Expression string `yaml:"expression,omitempty" json:"expression,omitempty"`
}

type textBlockDoc struct {
	Speaker    string `yaml:"speaker" json:"speaker"`
	Text       string `yaml:"text" json:"text"`
	Expression string `yaml:"expression,omitempty" json:"expression,omitempty"`
	SFX        string `yaml:"sfx,omitempty" json:"sfx,omitempty"`
}

type choiceDoc struct {
	Text    string      `yaml:"text" json:"text"`
	Next    string      `yaml:"next" json:"next"`
	Effects []effectDoc `yaml:"effects,omitempty" json:"effects,omitempty"`
}

type effectDoc struct {
	Type  string `yaml:"type" json:"type"`
	Name  string `yaml:"name" json:"name"`
	Value any    `yaml:"value" json:"value"`
}

type transitionDoc struct {
	Type     string `yaml:"type" json:"type"`
	Duration int    `yaml:"duration,omitempty" json:"duration,omitempty"`
	Easing   string `yaml:"easing,omitempty" json:"easing,omitempty"`
}

// bgmDoc accepts the three instruction forms: a bare track name, a track
// object with playback hints, or explicit {stop: true} / {continue: true}.
type bgmDoc struct {
	bgm BGM
}

type bgmObjDoc struct {
	Track    string   `yaml:"track,omitempty" json:"track,omitempty"`
	Stop     bool     `yaml:"stop,omitempty" json:"stop,omitempty"`
	Continue bool     `yaml:"continue,omitempty" json:"continue,omitempty"`
	Volume   *float64 `yaml:"volume,omitempty" json:"volume,omitempty"`
	FadeIn   *float64 `yaml:"fadeIn,omitempty" json:"fadeIn,omitempty"`
	Loop     *bool    `yaml:"loop,omitempty" json:"loop,omitempty"`
}

func (d *bgmDoc) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var track string
		if err := json.Unmarshal(data, &track); err != nil {
			return err
		}
		d.bgm = BGM{Track: track}
		return nil
	}

	var obj bgmObjDoc
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&obj); err != nil {
		return err
	}
	return d.fromObj(obj)
}

func (d *bgmDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var track string
		if err := node.Decode(&track); err != nil {
			return err
		}
		d.bgm = BGM{Track: track}
		return nil
	}

	var obj bgmObjDoc
	if err := node.Decode(&obj); err != nil {
		return err
	}
	return d.fromObj(obj)
}

func (d *bgmDoc) fromObj(obj bgmObjDoc) error {
	switch {
	case obj.Stop:
		d.bgm = BGM{Stop: true}
	case obj.Continue:
		d.bgm = BGM{Continue: true}
	case obj.Track != "":
		d.bgm = BGM{Track: obj.Track, Volume: obj.Volume, FadeIn: obj.FadeIn, Loop: obj.Loop}
	default:
		return fmt.Errorf("bgm instruction must name a track, stop, or continue")
	}
	return nil
}

func (d scenarioDoc) toScenario() (*Scenario, error) {
	if d.ID == "" {
		return nil, fmt.Errorf("scenario id is required")
	}

	s := &Scenario{
		ID:     d.ID,
		Title:  nfc(d.Title),
		Scenes: make([]Scene, 0, len(d.Scenes)),
	}

	for i, sd := range d.Scenes {
		scene, err := sd.toScene()
		if err != nil {
			return nil, fmt.Errorf("scenes[%d]: %w", i, err)
		}
		s.Scenes = append(s.Scenes, scene)
	}

	return s, nil
}

func (d sceneDoc) toScene() (Scene, error) {
	if d.ID == "" {
		return Scene{}, fmt.Errorf("scene id is required")
	}

	scene := Scene{
		ID:         d.ID,
		Background: d.Background,
		SFX:        d.SFX,
		Next:       d.Next,
	}

	if d.BGM != nil {
		bgm := d.BGM.bgm
		scene.BGM = &bgm
	}

	for i, cd := range d.Characters {
		pos := Position(cd.Position)
		switch pos {
		case PositionLeft, PositionCenter, PositionRight:
		default:
			return Scene{}, fmt.Errorf("characters[%d]: invalid position %q", i, cd.Position)
		}
		scene.Characters = append(scene.Characters, Character{
			Name:       nfc(cd.Name),
			Position:   pos,
			Expression: cd.Expression,
		})
	}

	for _, td := range d.TextBlocks {
		scene.TextBlocks = append(scene.TextBlocks, TextBlock{
			Speaker:    nfc(td.Speaker),
			Text:       nfc(td.Text),
			Expression: td.Expression,
			SFX:        td.SFX,
		})
	}

	for i, cd := range d.Choices {
		choice, err := cd.toChoice()
		if err != nil {
			return Scene{}, fmt.Errorf("choices[%d]: %w", i, err)
		}
		scene.Choices = append(scene.Choices, choice)
	}

	if d.Transition != nil {
		tt := TransitionType(d.Transition.Type)
		switch tt {
		case TransitionFade, TransitionWipe, TransitionFlash, TransitionNone:
		default:
			return Scene{}, fmt.Errorf("invalid transition type %q", d.Transition.Type)
		}
		scene.Transition = &Transition{
			Type:       tt,
			DurationMS: d.Transition.Duration,
			Easing:     d.Transition.Easing,
		}
	}

	return scene, nil
}

func (d choiceDoc) toChoice() (Choice, error) {
	if d.Next == "" {
		return Choice{}, fmt.Errorf("choice target is required")
	}

	choice := Choice{
		Text: nfc(d.Text),
		Next: d.Next,
	}

	for i, ed := range d.Effects {
		eff, err := ed.toEffect()
		if err != nil {
			return Choice{}, fmt.Errorf("effects[%d]: %w", i, err)
		}
		choice.Effects = append(choice.Effects, eff)
	}

	return choice, nil
}

func (d effectDoc) toEffect() (Effect, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("effect name is required")
	}

	switch d.Type {
	case "setVariable":
		v, ok := toNumber(d.Value)
		if !ok {
			return nil, fmt.Errorf("setVariable %q: value must be a number, got %T", d.Name, d.Value)
		}
		return SetVariable{Name: d.Name, Value: v}, nil

	case "setFlag":
		b, ok := d.Value.(bool)
		if !ok {
			return nil, fmt.Errorf("setFlag %q: value must be a boolean, got %T", d.Name, d.Value)
		}
		return SetFlag{Name: d.Name, Value: b}, nil

	default:
		return nil, fmt.Errorf("unknown effect type %q", d.Type)
	}
}

// toNumber coerces the scalar types the two decoders produce for numbers.
// JSON always yields float64; YAML yields int for whole numbers.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func nfc(s string) string {
	return norm.NFC.String(s)
}
