package extensions

import (
	"reflect"

	"github.com/traefik/yaegi/interp"

	"github.com/Minion3665/jishaku/pkg/command"
)

// hostSymbols exposes the host command API to interpreted extensions, shaped
// the way yaegi's extract tool lays out package exports.
func hostSymbols() interp.Exports {
	return interp.Exports{
		hostPath + "/command": {
			"ErrNotOwner":    reflect.ValueOf(&command.ErrNotOwner).Elem(),
			"New":            reflect.ValueOf(command.New),
			"NewHelpCommand": reflect.ValueOf(command.NewHelpCommand),

			"CheckFunc":   reflect.ValueOf((*command.CheckFunc)(nil)),
			"Command":     reflect.ValueOf((*command.Command)(nil)),
			"Context":     reflect.ValueOf((*command.Context)(nil)),
			"HandlerFunc": reflect.ValueOf((*command.HandlerFunc)(nil)),
			"Router":      reflect.ValueOf((*command.Router)(nil)),
			"Sender":      reflect.ValueOf((*command.Sender)(nil)),
		},
	}
}
