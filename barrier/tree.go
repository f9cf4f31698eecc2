package barrier

import "github.com/BTMichalowicz/go-shcoll/internal/treeshape"

// treeParent/treeChildren and completeParent/completeChildren are thin
// aliases over internal/treeshape, the shared tree-numbering package also
// used by broadcast.BinomialTree.
func treeParent(rank, r int) (int, bool)    { return treeshape.KNomialParent(rank, r) }
func treeChildren(rank, n, r int) []int     { return treeshape.KNomialChildren(rank, n, r) }
func completeParent(rank, degree int) (int, bool) { return treeshape.CompleteParent(rank, degree) }
func completeChildren(rank, n, degree int) []int  { return treeshape.CompleteChildren(rank, n, degree) }
