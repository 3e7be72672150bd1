// Package distance defines the inner-product vector space used by the index.
//
// Similarity is the plain dot product. Distance is 1 - dot, so that smaller
// values are closer and a min-heap ordering can be used during graph
// construction and search. The same convention is used everywhere; results
// returned to callers carry the distance, and Similarity can be recovered as
// 1 - distance.
//
// # Usage
//
//	space, _ := distance.NewInnerProductSpace(128)
//	d := space.Distance(a, b)
//	sim := distance.Dot(a, b)
package distance
