// Package fixture generates pytest fixture code.
//
// A fixture is described by a [Spec]: its kind (factory, database, mock and
// so on), a base name, and the kind-specific scope or params. [Generate]
// renders one fixture and [GenerateConftest] renders a complete conftest.py
// from a list of specs, which may be loaded from a YAML or TOML definitions
// file with [LoadDefinitions].
package fixture
