package modkit

import "scorekeeper/internal/modkit/module"

// Module is the surface api composition works with
type Module = module.Module
