package core

import "hash/fnv"

// NameHash is the 32-bit FNV-1a hash used to key named resources.
func NameHash(name string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return h.Sum32()
}

// CombineHash mixes v into seed.
func CombineHash(seed, v uint32) uint32 {
	seed ^= v + 0x9e3779b9 + (seed << 6) + (seed >> 2)
	return seed
}
