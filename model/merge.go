package model

import "encoding/json"

// DeepMerge merges patch into base and returns the result. Objects merge
// key by key; arrays and scalars replace wholesale. Neither input is
// mutated. An explicit null in the patch clears the key.
func DeepMerge(base, patch map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		pv, pOK := v.(map[string]interface{})
		bv, bOK := out[k].(map[string]interface{})
		if pOK && bOK {
			out[k] = DeepMerge(bv, pv)
			continue
		}
		out[k] = v
	}
	return out
}

// ToDocument converts a typed record into the generic JSON tree used by the
// merge and storage layers.
func ToDocument(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// FromDocument decodes a generic JSON tree back into a LaunchPack.
func FromDocument(doc map[string]interface{}) (*LaunchPack, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	lp := &LaunchPack{}
	if err := json.Unmarshal(raw, lp); err != nil {
		return nil, err
	}
	return lp, nil
}
