package host

// MergeTermMeta combines the plugin-native term meta store with the legacy
// third-party store. Until the native store carries TermMetaSavedFlag the legacy
// values win for every key they define; afterwards only native values are used.
//
// This is a legacy-compatibility surface: new metadata sources must not be added
// to this precedence chain.
func MergeTermMeta(native, legacy map[string]string) map[string]string {
	out := make(map[string]string, len(native)+len(legacy))
	for k, v := range native {
		out[k] = v
	}
	if NewValue(native[TermMetaSavedFlag]).Bool() {
		return out
	}
	for k, v := range legacy {
		if v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
