package nodes

import (
	"errors"
	"strings"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/engine"
	"github.com/aretw0/folio/pkg/ports"
	"github.com/aretw0/folio/pkg/registry"
)

const TypeMention = "mention"

// MentionNode is a reference to a user rendered as "@name". It is segmented:
// deleting part of it removes whole words.
type MentionNode struct {
	domain.TextBase
	MentionName     string
	MentionedUserID string
	// AlphaName is the name with non-letters stripped, used for lookup.
	AlphaName string
}

// NewMention returns a mention of userID displayed as name.
func NewMention(name, userID string) *MentionNode {
	return &MentionNode{
		TextBase:        domain.TextBase{Content: "@" + name, Mode: domain.ModeSegmented},
		MentionName:     name,
		MentionedUserID: userID,
		AlphaName:       alphaName(name),
	}
}

func alphaName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (*MentionNode) Type() string { return TypeMention }

func (n *MentionNode) Clone() domain.Node {
	c := *n
	c.TextBase = n.CloneText()
	return &c
}

func (n *MentionNode) EncodeFields(rec domain.Record) error {
	rec["mentionName"] = n.MentionName
	rec["mentionedUserId"] = n.MentionedUserID
	rec["alphaName"] = n.AlphaName
	return nil
}

func (n *MentionNode) DecodeFields(rec domain.Record) error {
	var f struct {
		MentionName     string `mapstructure:"mentionName"`
		MentionedUserID string `mapstructure:"mentionedUserId"`
		AlphaName       string `mapstructure:"alphaName"`
	}
	if err := registry.DecodeFields(rec, &f); err != nil {
		return err
	}
	var missing []string
	if f.MentionName == "" {
		missing = append(missing, "mentionName")
	}
	if f.MentionedUserID == "" {
		missing = append(missing, "mentionedUserId")
	}
	if f.AlphaName == "" {
		missing = append(missing, "alphaName")
	}
	if len(missing) > 0 {
		return errors.New("mention is missing " + strings.Join(missing, ", "))
	}
	n.MentionName = f.MentionName
	n.MentionedUserID = f.MentionedUserID
	n.AlphaName = f.AlphaName
	if n.Content == "" {
		n.Content = "@" + f.MentionName
	}
	return nil
}

// InsertMention appends a mention of userID to parent.
func InsertMention(tx *engine.Tx, parent domain.NodeKey, name, userID string) (domain.NodeKey, error) {
	if name == "" || userID == "" {
		return "", errors.New("mention needs a name and a user id")
	}
	k, err := tx.Create(NewMention(name, userID))
	if err != nil {
		return "", err
	}
	return k, tx.Append(parent, k)
}

// MentionPlugin registers the mention type.
type MentionPlugin struct{}

func (MentionPlugin) Name() string { return "mention" }

func (MentionPlugin) SetUp(host ports.Host) error {
	return host.RegisterNodeType(TypeMention, newMention, nil)
}

func (MentionPlugin) TearDown() error { return nil }

func newMention() domain.Node { return &MentionNode{TextBase: domain.TextBase{Mode: domain.ModeSegmented}} }

// Plugins returns the plugins for every extension type in this package.
func Plugins() []ports.Plugin {
	return []ports.Plugin{ListPlugin{}, TabPlugin{}, MentionPlugin{}}
}

// Register binds every extension type directly, for tools that work on a
// bare registry.
func Register(r *registry.Registry) error {
	bindings := []registry.Binding{
		{Tag: TypeList, New: newList},
		{Tag: TypeListItem, New: newListItem},
		{Tag: TypeTab, New: newTab},
		{Tag: TypeMention, New: newMention},
	}
	for _, b := range bindings {
		if err := r.Register(b.Tag, b.New, b.Codec); err != nil {
			return err
		}
	}
	return nil
}
