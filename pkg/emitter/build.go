package emitter

import (
	"fmt"

	"github.com/githubnext/ocsfc/pkg/constants"
	"github.com/githubnext/ocsfc/pkg/corpus"
	"github.com/githubnext/ocsfc/pkg/logger"
	"github.com/githubnext/ocsfc/pkg/normalize"
	"github.com/githubnext/ocsfc/pkg/validator"
)

var buildLog = logger.New("emitter:build")

// Build constructs live validators for every unit of p. Units are built in
// plan order, so every eager reference points at an object built earlier;
// deferred references resolve through the returned registry on first use.
func Build(p *Plan) (*validator.Registry, error) {
	reg := validator.NewRegistry(p.Version())
	built := make(map[string]*validator.Object, len(p.Order))

	for _, u := range p.Order {
		fields := make([]validator.Field, 0, len(u.Fields))
		for _, f := range u.Fields {
			v, err := fieldValidator(f, reg, built)
			if err != nil {
				return nil, fmt.Errorf("%s %q: %w", u.Entity.Type, u.Entity.Name, err)
			}
			fields = append(fields, validator.Field{
				Name:      f.Attribute.Name,
				Validator: v,
				Required:  f.Attribute.IsRequired(),
			})
		}

		obj := validator.NewObject(u.Entity.Name, fields...)
		if c := u.Entity.Constraints; !c.IsZero() {
			obj.WithConstraints(c.AtLeastOne, c.JustOne)
		}
		if u.IsOpen() {
			obj.Open()
		}

		if u.IsEvent() {
			reg.RegisterEvent(validator.NewEvent(obj, NormalizeConfig(u)))
			continue
		}
		built[u.Entity.Name] = reg.Register(obj)
	}

	buildLog.Printf("Built validator set: objects=%d, events=%d", len(reg.ObjectNames()), len(reg.EventNames()))
	return reg, nil
}

// NormalizeConfig returns the normalization configuration of an event unit.
func NormalizeConfig(u *Unit) normalize.Config {
	return normalize.Config{
		Siblings:    u.Entity.Siblings,
		CategoryUID: u.Entity.CategoryUID,
		ClassUID:    u.Entity.ClassUID,
	}
}

func fieldValidator(f FieldPlan, reg *validator.Registry, built map[string]*validator.Object) (validator.Validator, error) {
	a := f.Attribute
	var v validator.Validator
	switch {
	case a.IsUnmapped():
		v = validator.Unmapped()
	case a.Kind == corpus.KindObject:
		if f.Strategy == Deferred {
			v = reg.Lazy(f.Target.Name)
			break
		}
		target, ok := built[f.Target.Name]
		if !ok {
			return nil, fmt.Errorf("attribute %q: eager reference to %q before it is built", a.Name, f.Target.Name)
		}
		v = validator.Ref(target)
	case a.Kind == corpus.KindEnum:
		values := make([]int64, len(a.Enum))
		for i, e := range a.Enum {
			values[i] = e.Value
		}
		v = validator.Enum(baseValidator(a.BaseType), values...)
	default:
		v = baseValidator(a.BaseType)
	}
	if a.IsArray {
		v = validator.Array(v)
	}
	return v, nil
}

func baseValidator(t constants.BaseType) validator.Validator {
	switch t {
	case constants.BaseInteger:
		return validator.Integer()
	case constants.BaseLong:
		return validator.Long()
	case constants.BaseFloat:
		return validator.Float()
	case constants.BaseBoolean:
		return validator.Boolean()
	case constants.BaseJSON:
		return validator.JSON()
	default:
		return validator.String()
	}
}
