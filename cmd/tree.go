package cmd

import (
	"fmt"
	"time"

	"stixpattern/pattern"
)

// nodeView is the JSON/YAML shape of a pattern tree node.
type nodeView struct {
	Kind    string         `json:"kind" yaml:"kind"`
	Op      string         `json:"op,omitempty" yaml:"op,omitempty"`
	Negated bool           `json:"negated,omitempty" yaml:"negated,omitempty"`
	Path    *pathView      `json:"path,omitempty" yaml:"path,omitempty"`
	Operand []constantView `json:"operand,omitempty" yaml:"operand,omitempty"`
	Left    *nodeView      `json:"left,omitempty" yaml:"left,omitempty"`
	Right   *nodeView      `json:"right,omitempty" yaml:"right,omitempty"`
	Pattern *nodeView      `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Repeat  int            `json:"repeats,omitempty" yaml:"repeats,omitempty"`
	Within  float64        `json:"within,omitempty" yaml:"within,omitempty"`
	Start   string         `json:"start,omitempty" yaml:"start,omitempty"`
	Stop    string         `json:"stop,omitempty" yaml:"stop,omitempty"`
}

type pathView struct {
	ObjectType string          `json:"object_type" yaml:"object_type"`
	Properties []componentView `json:"properties" yaml:"properties"`
}

type componentView struct {
	Name  string `json:"name" yaml:"name"`
	Index string `json:"index,omitempty" yaml:"index,omitempty"`
}

type constantView struct {
	Type  string      `json:"type" yaml:"type"`
	Value interface{} `json:"value" yaml:"value"`
}

// treeOf converts a parsed pattern into its serializable view.
func treeOf(n pattern.Node) *nodeView {
	switch n := n.(type) {
	case nil:
		return nil
	case *pattern.Comparison:
		v := &nodeView{
			Kind:    "comparison",
			Op:      n.Op.String(),
			Negated: n.Negated,
			Path:    pathOf(n.Path),
		}
		switch op := n.Operand.(type) {
		case nil:
		case pattern.ConstantList:
			for _, c := range op {
				v.Operand = append(v.Operand, constantOf(c))
			}
		case pattern.Constant:
			v.Operand = []constantView{constantOf(op)}
		}
		return v
	case *pattern.CompositeComparison:
		return &nodeView{Kind: "comparison_expression", Op: n.Op.String(), Left: treeOf(n.Left), Right: treeOf(n.Right)}
	case *pattern.CompositePattern:
		return &nodeView{Kind: "observation_expression", Op: n.Op.String(), Left: treeOf(n.Left), Right: treeOf(n.Right)}
	case *pattern.QualifiedPattern:
		v := &nodeView{Kind: "qualified", Pattern: treeOf(n.Pattern), Repeat: n.Repeat, Within: n.Within}
		if n.HasInterval() {
			v.Start = n.Start.Format(time.RFC3339Nano)
			v.Stop = n.Stop.Format(time.RFC3339Nano)
		}
		return v
	default:
		panic(fmt.Sprintf("unexpected node type %T", n))
	}
}

func pathOf(p pattern.ObjectPath) *pathView {
	v := &pathView{ObjectType: p.ObjectType}
	for _, c := range p.PropertyPath {
		v.Properties = append(v.Properties, componentView{Name: c.Property, Index: c.Index.String()})
	}
	return v
}

func constantOf(c pattern.Constant) constantView {
	v := constantView{Type: c.Kind().String()}
	switch c := c.(type) {
	case pattern.StringConstant:
		v.Value = string(c)
	case pattern.IntConstant:
		v.Value = int64(c)
	case pattern.FloatConstant:
		v.Value = float64(c)
	case pattern.BoolConstant:
		v.Value = bool(c)
	case pattern.TimestampConstant:
		v.Value = c.Time().Format(time.RFC3339Nano)
	case pattern.HexConstant:
		v.Value = string(c)
	case pattern.BinaryConstant:
		v.Value = string(c)
	default:
		v.Value = c.String()
	}
	return v
}
