package liblamp

import (
	"github.com/2x3systems/golamp/golamp"
	"github.com/alecthomas/participle/v2"
	"github.com/pkg/errors"
)

// SchemeExpr is a list of scheme params, e.g.
//
//	nBits=16 maxZeros=2 minZeros=1 require="00" lampBits=12 marker="1001"
//
// Params left out keep their golamp.DefaultScheme() value.
type SchemeExpr struct {
	Params []*SchemeParam `(@@ ","?)*`
}

type SchemeParam struct {
	Key  string  `@Ident "="`
	Int  *int64  `( @Int`
	Bits *string `| @String )`
}

var parseSchemeExpr = participle.MustBuild[SchemeExpr](participle.Unquote("String"))

// ParseScheme parses a scheme expression over golamp.DefaultScheme() and normalizes the result.
func ParseScheme(schemeExpr string) (golamp.Scheme, error) {
	scheme := golamp.DefaultScheme()

	expr, err := parseSchemeExpr.ParseString("", schemeExpr)
	if err != nil {
		return scheme, errors.Wrap(golamp.ErrBadScheme, err.Error())
	}

	// A changed width invalidates the default lamp width unless it is given too.
	lampBitsGiven := false
	for _, param := range expr.Params {
		if err := applySchemeParam(&scheme, param); err != nil {
			return scheme, err
		}
		if param.Key == "lampBits" {
			lampBitsGiven = true
		}
	}
	if !lampBitsGiven {
		scheme.LampBits = 0
	}

	err = scheme.Normalize()
	return scheme, err
}

func applySchemeParam(scheme *golamp.Scheme, param *SchemeParam) error {
	var intDst *int
	var bitsDst *string

	switch param.Key {
	case "nBits":
		intDst = &scheme.NumBits
	case "maxZeros":
		intDst = &scheme.MaxZeroRun
	case "minZeros":
		intDst = &scheme.MinTotalZeros
	case "lampBits":
		intDst = &scheme.LampBits
	case "require":
		bitsDst = &scheme.Require
	case "marker":
		bitsDst = &scheme.StartMarker
	default:
		return errors.Wrapf(golamp.ErrBadScheme, "unknown param %q", param.Key)
	}

	switch {
	case intDst != nil && param.Int != nil:
		*intDst = int(*param.Int)
	case bitsDst != nil && param.Bits != nil:
		*bitsDst = *param.Bits
	default:
		return errors.Wrapf(golamp.ErrBadScheme, "wrong value type for %q", param.Key)
	}
	return nil
}
