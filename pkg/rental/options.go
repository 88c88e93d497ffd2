package rental

// Option configures a service instance.
type Option func(*serviceOptions)

type serviceOptions struct {
	logger   OperationLogger
	currency string
}

func resolveOptions(options []Option) serviceOptions {
	resolved := serviceOptions{currency: DefaultCurrency}
	for _, option := range options {
		if option != nil {
			option(&resolved)
		}
	}
	return resolved
}

// WithOperationLogger wires a logger that receives callbacks for every
// state-changing operation.
func WithOperationLogger(logger OperationLogger) Option {
	return func(resolved *serviceOptions) {
		resolved.logger = logger
	}
}

// WithCurrency overrides the currency code stamped on money records.
func WithCurrency(code string) Option {
	return func(resolved *serviceOptions) {
		if code != "" {
			resolved.currency = code
		}
	}
}
