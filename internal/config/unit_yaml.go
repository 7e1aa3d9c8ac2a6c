package config

import "gopkg.in/yaml.v3"

// UnmarshalYAML decodes a unit on top of its defaults so omitted keys such as
// emit.grpc keep their default value.
func (u *BuildUnit) UnmarshalYAML(node *yaml.Node) error {
	type plain BuildUnit
	raw := plain(defaultUnit())
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*u = BuildUnit(raw)
	return nil
}
