package version

// route is the conversion path chosen by the router.
type route int

const (
	routeNone route = iota
	routeTargetLossless
	routeSourceLossless
	routeTargetLossy
	routeSourceLossy
)

// selectRoute picks a path from what the target can absorb and what the
// source can emit. The target is preferred because it knows best how to map
// foreign data into its own grammar; lossless beats lossy.
func selectRoute(target, source Capability) route {
	switch {
	case target.Supported && target.Lossless:
		return routeTargetLossless
	case source.Supported && source.Lossless:
		return routeSourceLossless
	case target.Supported:
		return routeTargetLossy
	case source.Supported:
		return routeSourceLossy
	}
	return routeNone
}

func (rt route) capability() Capability {
	switch rt {
	case routeTargetLossless, routeSourceLossless:
		return lossless
	case routeTargetLossy, routeSourceLossy:
		return Capability{Supported: true}
	}
	return unsupported
}

// Conversion reports the capability of the path Convert would take between two formats.
func (r *Registry) Conversion(from, to Format) (Capability, error) {
	rt, _, _, err := r.route(from, to)
	if err != nil {
		return Capability{}, err
	}
	return rt.capability(), nil
}

func (r *Registry) route(from, to Format) (route, Parser, Parser, error) {
	source, err := r.Parser(from)
	if err != nil {
		return routeNone, nil, nil, err
	}
	target, err := r.Parser(to)
	if err != nil {
		return routeNone, nil, nil, err
	}
	return selectRoute(target.CanConvertFrom(from), source.CanConvertTo(to)), source, target, nil
}

// Convert returns c in format to. Converting to the container's own format
// returns c unchanged.
func (r *Registry) Convert(c Container, to Format) (Container, error) {
	if c.ParsedBy == to {
		return c, nil
	}

	rt, source, target, err := r.route(c.ParsedBy, to)
	if err != nil {
		return Container{}, err
	}

	switch rt {
	case routeTargetLossless, routeTargetLossy:
		return target.ConvertFrom(c)
	case routeSourceLossless, routeSourceLossy:
		return source.ConvertTo(c, to)
	}
	return Container{}, &UnconvertableError{From: c.ParsedBy, To: to}
}
