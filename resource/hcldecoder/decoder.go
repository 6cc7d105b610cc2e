package hcldecoder

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/hashicorp/hcl2/hcl"
	"github.com/terrane/terrane/config"
	"github.com/terrane/terrane/ctyext"
	"github.com/terrane/terrane/resource"
	"github.com/terrane/terrane/resource/hcldecoder/internal/expr"
	"github.com/terrane/terrane/resource/schema"
	"github.com/terrane/terrane/suggest"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "project", LabelNames: []string{"name"}},
		{Type: "resource", LabelNames: []string{"type", "name"}},
		{Type: "output", LabelNames: []string{"name"}},
	},
}

// A Decoder decodes hcl configuration bodies into a resource graph.
type Decoder struct {
	// Registry provides the resource definitions that configured resources
	// are decoded against.
	Registry *resource.Registry
}

// pendingResource is a resource block that has been decoded but whose input
// value has not yet been finalized.
type pendingResource struct {
	res      *resource.Resource
	typ      reflect.Type
	defRange hcl.Range
	input    *node
}

// node is a partially decoded input value, mirroring the structure of the
// resource's input fields. Exactly one of object, list or leaf expression is
// set.
type node struct {
	path   cty.Path // path to the value, relative to the resource input
	wantTy cty.Type // final type for the value

	object map[string]*node
	fields schema.FieldSet // set on object nodes

	isList bool
	list   []*node

	expr      resource.Expression // set on leaf nodes
	exprRange hcl.Range
}

type outputBlock struct {
	name     string
	expr     resource.Expression
	rng      hcl.Range
	defRange hcl.Range
}

// DecodeBody decodes a configuration body into a resource graph.
//
// The returned diagnostics should always be checked; if they contain errors,
// the graph may be partially populated and should not be used.
//
// References between resources are statically resolved where possible: a
// reference to an input of another resource is replaced with the referenced
// value. References that cannot be resolved from configuration alone, such
// as references to outputs, become dependencies in the graph.
func (d *Decoder) DecodeBody(body hcl.Body) (*resource.Graph, *config.Project, hcl.Diagnostics) {
	content, diags := body.Content(rootSchema)

	graph := resource.NewGraph()
	var project *config.Project
	var pending []*pendingResource
	var outputs []outputBlock

	for _, block := range content.Blocks {
		switch block.Type {
		case "project":
			if project != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Duplicate project block",
					Detail:   "The configuration must contain exactly one project block.",
					Subject:  block.DefRange.Ptr(),
				})
				continue
			}
			project = &config.Project{Name: block.Labels[0]}
		case "resource":
			p, resDiags := d.decodeResourceBlock(block)
			diags = append(diags, resDiags...)
			if p != nil {
				pending = append(pending, p)
			}
		case "output":
			o, outDiags := decodeOutputBlock(block)
			diags = append(diags, outDiags...)
			if o != nil {
				outputs = append(outputs, *o)
			}
		}
	}

	if project == nil {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Missing project block",
			Detail:   "The configuration must contain a project block: project \"name\" {}.",
		})
	}

	index := make(map[string]*pendingResource, len(pending))
	added := make(map[*pendingResource]bool, len(pending))
	for _, p := range pending {
		if err := graph.AddResource(p.res); err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate resource",
				Detail:   fmt.Sprintf("A resource %q %q was already declared.", p.res.Type, p.res.Name),
				Subject:  p.defRange.Ptr(),
			})
			continue
		}
		index[p.res.Addr()] = p
		added[p] = true
	}

	// Resolve references now that all resources are known.
	for _, p := range pending {
		for _, leaf := range p.input.leaves() {
			resolved, resolveDiags := d.resolveExpr(leaf.expr, leaf.exprRange, index)
			diags = append(diags, resolveDiags...)
			leaf.expr = resolved
		}
	}

	// Finalize input values and record dependencies for the references that
	// remain.
	for _, p := range pending {
		if !added[p] {
			continue
		}
		p.res.Input = p.input.value(&diags)
		for _, leaf := range p.input.leaves() {
			if len(leaf.expr.References()) == 0 {
				continue
			}
			dep := resource.Dependency{Field: leaf.path, Expression: leaf.expr}
			if err := graph.AddDependency(p.res.Addr(), dep); err != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid reference",
					Detail:   err.Error(),
					Subject:  leaf.exprRange.Ptr(),
				})
			}
		}
		diags = append(diags, d.validateInput(p)...)
	}

	for _, o := range outputs {
		resolved, resolveDiags := d.resolveExpr(o.expr, o.rng, index)
		diags = append(diags, resolveDiags...)
		if resolveDiags.HasErrors() {
			continue
		}
		if err := graph.AddOutput(o.name, resolved); err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid output",
				Detail:   err.Error(),
				Subject:  o.defRange.Ptr(),
			})
		}
	}

	if !diags.HasErrors() {
		if _, err := graph.SortedResources(); err != nil {
			cerr := err.(*resource.CycleError)
			diag := &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Dependency cycle",
				Detail:   fmt.Sprintf("The resources reference each other in a cycle: %s.", cerr.Error()),
			}
			if p, ok := index[cerr.Path[0]]; ok {
				diag.Subject = p.defRange.Ptr()
			}
			diags = append(diags, diag)
		}
	}

	return graph, project, diags
}

func (d *Decoder) decodeResourceBlock(block *hcl.Block) (*pendingResource, hcl.Diagnostics) {
	typename := block.Labels[0]
	name := block.Labels[1]

	t := d.Registry.Type(typename)
	if t == nil {
		detail := fmt.Sprintf("A resource of type %q is not supported.", typename)
		if s := d.Registry.SuggestType(typename); s != "" {
			detail += fmt.Sprintf(" Did you mean %q?", s)
		}
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unsupported resource type",
			Detail:   detail,
			Subject:  block.LabelRanges[0].Ptr(),
		}}
	}

	fields := schema.Fields(t).Inputs()
	input, diags := decodeObject(block.Body, fields, nil)

	return &pendingResource{
		res:      &resource.Resource{Type: typename, Name: name},
		typ:      t,
		defRange: block.DefRange,
		input:    input,
	}, diags
}

func decodeOutputBlock(block *hcl.Block) (*outputBlock, hcl.Diagnostics) {
	content, diags := block.Body.Content(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{{Name: "value", Required: true}},
	})
	attr, ok := content.Attributes["value"]
	if !ok {
		return nil, diags
	}
	ex, exprDiags := convertExpr(attr.Expr)
	diags = append(diags, exprDiags...)
	if exprDiags.HasErrors() {
		return nil, diags
	}
	return &outputBlock{
		name:     block.Labels[0],
		expr:     ex,
		rng:      attr.Expr.Range(),
		defRange: block.DefRange,
	}, diags
}

// decodeObject decodes a body against a set of schema fields. Fields with a
// struct type are decoded from nested blocks, everything else is an
// attribute.
func decodeObject(body hcl.Body, fields schema.FieldSet, path cty.Path) (*node, hcl.Diagnostics) {
	bodySchema := &hcl.BodySchema{}
	blockFields := make(map[string]schema.Field)
	for fname, f := range fields {
		if derefType(f.Type).Kind() == reflect.Interface {
			continue
		}
		if isBlockField(f.Type) {
			bodySchema.Blocks = append(bodySchema.Blocks, hcl.BlockHeaderSchema{Type: fname})
			blockFields[fname] = f
			continue
		}
		bodySchema.Attributes = append(bodySchema.Attributes, hcl.AttributeSchema{
			Name:     fname,
			Required: f.Required,
		})
	}

	content, diags := body.Content(bodySchema)

	n := &node{
		path:   path,
		object: make(map[string]*node, len(content.Attributes)),
		fields: fields,
	}

	for fname, attr := range content.Attributes {
		f := fields[fname]
		ex, exprDiags := convertExpr(attr.Expr)
		diags = append(diags, exprDiags...)
		if exprDiags.HasErrors() {
			continue
		}
		n.object[fname] = &node{
			path:      pathAttr(path, fname),
			wantTy:    schema.ImpliedType(f.Type),
			expr:      ex,
			exprRange: attr.Expr.Range(),
		}
	}

	byType := make(map[string][]*hcl.Block)
	for _, b := range content.Blocks {
		byType[b.Type] = append(byType[b.Type], b)
	}

	for fname, f := range blockFields {
		blocks := byType[fname]
		fieldPath := pathAttr(path, fname)
		t := derefType(f.Type)

		if t.Kind() == reflect.Slice {
			elem := derefType(t.Elem())
			ln := &node{
				path:   fieldPath,
				wantTy: schema.ImpliedType(t),
				isList: true,
			}
			for i, b := range blocks {
				child, childDiags := decodeObject(b.Body, schema.Fields(elem), pathIndex(fieldPath, i))
				diags = append(diags, childDiags...)
				ln.list = append(ln.list, child)
			}
			if f.Required && len(blocks) == 0 {
				diags = append(diags, missingBlock(body, fname))
			}
			n.object[fname] = ln
			continue
		}

		if len(blocks) == 0 {
			if f.Required {
				diags = append(diags, missingBlock(body, fname))
			}
			continue
		}
		if len(blocks) > 1 {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate block",
				Detail:   fmt.Sprintf("Only one %s block is allowed.", fname),
				Subject:  blocks[1].DefRange.Ptr(),
			})
		}
		child, childDiags := decodeObject(blocks[0].Body, schema.Fields(t), fieldPath)
		diags = append(diags, childDiags...)
		n.object[fname] = child
	}

	return n, diags
}

func missingBlock(body hcl.Body, name string) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Missing block",
		Detail:   fmt.Sprintf("A %s block is required.", name),
		Subject:  body.MissingItemRange().Ptr(),
	}
}

// resolveExpr rewrites the references in an expression. References to
// statically known input values are replaced with literals. References to
// outputs, and to inputs that cannot be resolved from configuration, are
// kept.
func (d *Decoder) resolveExpr(ex resource.Expression, rng hcl.Range, index map[string]*pendingResource) (resource.Expression, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	out := make(resource.Expression, 0, len(ex))
	for _, part := range ex {
		ref, ok := part.(resource.ExprReference)
		if !ok {
			out = append(out, part)
			continue
		}
		lit, refDiags := d.resolveRef(ref, rng, index)
		diags = append(diags, refDiags...)
		if refDiags.HasErrors() {
			continue
		}
		if lit != nil {
			out = append(out, *lit)
			continue
		}
		out = append(out, ref)
	}
	return out.MergeLiterals(), diags
}

// resolveRef resolves a single reference. Returns a literal if the reference
// could be statically resolved, nil if the reference must become a
// dependency.
func (d *Decoder) resolveRef(ref resource.ExprReference, rng hcl.Range, index map[string]*pendingResource) (*resource.ExprLiteral, hcl.Diagnostics) {
	path := ref.Path
	if len(path) < 3 {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid reference",
			Detail:   "A reference must have the format <type>.<name>.<field>.",
			Subject:  rng.Ptr(),
		}}
	}
	typeStep, tok := path[0].(cty.GetAttrStep)
	nameStep, nok := path[1].(cty.GetAttrStep)
	fieldStep, fok := path[2].(cty.GetAttrStep)
	if !tok || !nok || !fok {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid reference",
			Detail:   "A reference must have the format <type>.<name>.<field>.",
			Subject:  rng.Ptr(),
		}}
	}

	addr := resource.Addr(typeStep.Name, nameStep.Name)
	target, ok := index[addr]
	if !ok {
		detail := fmt.Sprintf("A resource %q was not found.", addr)
		if s := suggest.String(addr, addrs(index)); s != "" {
			detail += fmt.Sprintf(" Did you mean %q?", s)
		}
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Referenced resource not found",
			Detail:   detail,
			Subject:  rng.Ptr(),
		}}
	}

	fields := schema.Fields(target.typ)
	if _, ok := fields[fieldStep.Name]; !ok {
		detail := fmt.Sprintf("The resource %q has no attribute %q.", addr, fieldStep.Name)
		if s := suggest.String(fieldStep.Name, fieldNames(fields)); s != "" {
			detail += fmt.Sprintf(" Did you mean %q?", s)
		}
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unsupported attribute",
			Detail:   detail,
			Subject:  rng.Ptr(),
		}}
	}

	if _, isInput := fields.Inputs()[fieldStep.Name]; isInput {
		if val, ok := target.staticValue(path[2:]); ok {
			return &resource.ExprLiteral{Value: val}, nil
		}
	}

	// Output, or an input that is not statically known. The value is
	// resolved when the parent resource has been applied.
	return nil, nil
}

// staticValue returns the configured value at a path relative to the
// resource's input. Returns false if the value is not statically known.
func (p *pendingResource) staticValue(rel cty.Path) (cty.Value, bool) {
	n := p.input
	i := 0
walk:
	for i < len(rel) {
		switch step := rel[i].(type) {
		case cty.GetAttrStep:
			if n.object == nil {
				break walk
			}
			child, ok := n.object[step.Name]
			if !ok {
				return cty.NilVal, false
			}
			n = child
			i++
		case cty.IndexStep:
			if !n.isList {
				break walk
			}
			if step.Key.Type() != cty.Number {
				return cty.NilVal, false
			}
			idx, acc := step.Key.AsBigFloat().Int64()
			if acc != 0 || idx < 0 || int(idx) >= len(n.list) {
				return cty.NilVal, false
			}
			n = n.list[int(idx)]
			i++
		default:
			return cty.NilVal, false
		}
	}
	if n.object != nil || n.isList {
		// Whole objects cannot be referenced.
		return cty.NilVal, false
	}
	if len(n.expr.References()) > 0 {
		return cty.NilVal, false
	}
	val, err := n.expr.Value(nil)
	if err != nil {
		return cty.NilVal, false
	}
	if rest := rel[i:]; len(rest) > 0 {
		v, err := rest.Apply(val)
		if err != nil {
			return cty.NilVal, false
		}
		val = v
	}
	return val, true
}

// value builds the final input value for the node. Fields with unresolved
// references become unknown values, unset fields become null.
func (n *node) value(diags *hcl.Diagnostics) cty.Value {
	switch {
	case n.object != nil:
		attrs := make(map[string]cty.Value, len(n.fields))
		for fname, f := range n.fields {
			if f.Type.Kind() == reflect.Interface {
				continue
			}
			child, ok := n.object[fname]
			if !ok {
				attrs[fname] = cty.NullVal(schema.ImpliedType(f.Type))
				continue
			}
			attrs[fname] = child.value(diags)
		}
		if len(attrs) == 0 {
			return cty.EmptyObjectVal
		}
		return cty.ObjectVal(attrs)
	case n.isList:
		if len(n.list) == 0 {
			return cty.ListValEmpty(n.wantTy.ElementType())
		}
		vals := make([]cty.Value, len(n.list))
		for i, child := range n.list {
			vals[i] = child.value(diags)
		}
		return cty.ListVal(vals)
	default:
		if len(n.expr.References()) > 0 {
			return cty.UnknownVal(n.wantTy)
		}
		val, err := n.expr.Value(nil)
		if err != nil {
			*diags = append(*diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid value",
				Detail:   err.Error(),
				Subject:  n.exprRange.Ptr(),
			})
			return cty.UnknownVal(n.wantTy)
		}
		conv, err := convert.Convert(val, n.wantTy)
		if err != nil {
			*diags = append(*diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid value",
				Detail:   fmt.Sprintf("Unsuitable value: %v.", err),
				Subject:  n.exprRange.Ptr(),
			})
			return cty.UnknownVal(n.wantTy)
		}
		return conv
	}
}

// leaves returns all leaf nodes, in a deterministic order.
func (n *node) leaves() []*node {
	switch {
	case n.object != nil:
		names := make([]string, 0, len(n.object))
		for fname := range n.object {
			names = append(names, fname)
		}
		sort.Strings(names)
		var out []*node
		for _, fname := range names {
			out = append(out, n.object[fname].leaves()...)
		}
		return out
	case n.isList:
		var out []*node
		for _, child := range n.list {
			out = append(out, child.leaves()...)
		}
		return out
	default:
		return []*node{n}
	}
}

// validateInput checks a statically known input against the validation rules
// on the definition. Inputs with unresolved references are checked when the
// resource is applied.
func (d *Decoder) validateInput(p *pendingResource) hcl.Diagnostics {
	if p.res.Input.IsNull() || !p.res.Input.IsWhollyKnown() {
		return nil
	}
	def, err := d.Registry.New(p.res.Type)
	if err != nil {
		return nil
	}
	if err := ctyext.FromCtyValue(p.res.Input, def, schema.FieldName); err != nil {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid configuration",
			Detail:   err.Error(),
			Subject:  p.defRange.Ptr(),
		}}
	}
	if err := schema.Validate(def); err != nil {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid configuration",
			Detail:   err.Error(),
			Subject:  p.defRange.Ptr(),
		}}
	}
	return nil
}

func convertExpr(ex hcl.Expression) (converted resource.Expression, diags hcl.Diagnostics) {
	defer func() {
		if r := recover(); r != nil {
			converted = nil
			diags = hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Unsupported expression",
				Detail:   "Only literal values, references and string templates are supported.",
				Subject:  ex.Range().Ptr(),
			}}
		}
	}()
	return expr.MustConvert(ex), nil
}

func isBlockField(t reflect.Type) bool {
	t = derefType(t)
	if t.Kind() == reflect.Slice {
		return derefType(t.Elem()).Kind() == reflect.Struct
	}
	return t.Kind() == reflect.Struct
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func pathAttr(p cty.Path, name string) cty.Path {
	out := make(cty.Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, cty.GetAttrStep{Name: name})
}

func pathIndex(p cty.Path, i int) cty.Path {
	out := make(cty.Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, cty.IndexStep{Key: cty.NumberIntVal(int64(i))})
}

func addrs(index map[string]*pendingResource) []string {
	out := make([]string, 0, len(index))
	for addr := range index {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

func fieldNames(fields schema.FieldSet) []string {
	out := make([]string, 0, len(fields))
	for fname := range fields {
		out = append(out, fname)
	}
	sort.Strings(out)
	return out
}
