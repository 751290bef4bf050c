package services

import (
	"github.com/custodia-labs/doclens/internal/vectors"
)

// passageCluster is a group of passage positions with a running centroid.
type passageCluster struct {
	members  []int
	sum      []float64
	centroid []float32
}

func newPassageCluster(idx int, embedding []float32) *passageCluster {
	c := &passageCluster{sum: make([]float64, len(embedding))}
	c.add(idx, embedding)
	return c
}

func (c *passageCluster) add(idx int, embedding []float32) {
	c.members = append(c.members, idx)
	for i := 0; i < len(c.sum) && i < len(embedding); i++ {
		c.sum[i] += float64(embedding[i])
	}
	c.centroid = make([]float32, len(c.sum))
	n := float64(len(c.members))
	for i, v := range c.sum {
		c.centroid[i] = float32(v / n)
	}
}

// clusterEmbeddings partitions embeddings in a single pass, in input order.
// Each embedding joins the cluster whose centroid is most similar if that
// similarity reaches threshold, otherwise it opens a new cluster. Once
// maxClusters exist, every remaining embedding joins its nearest centroid.
// Every index appears in exactly one cluster.
func clusterEmbeddings(embeddings [][]float32, threshold float64, maxClusters int) [][]int {
	if maxClusters <= 0 {
		maxClusters = 1
	}

	var clusters []*passageCluster
	for i, emb := range embeddings {
		best, bestSim := -1, -2.0
		for c := range clusters {
			sim := vectors.Cosine(emb, clusters[c].centroid)
			if sim > bestSim {
				best, bestSim = c, sim
			}
		}

		switch {
		case best >= 0 && bestSim >= threshold:
			clusters[best].add(i, emb)
		case len(clusters) >= maxClusters:
			clusters[best].add(i, emb)
		default:
			clusters = append(clusters, newPassageCluster(i, emb))
		}
	}

	groups := make([][]int, len(clusters))
	for i, c := range clusters {
		groups[i] = c.members
	}
	return groups
}

// representative returns the member of group closest to the group centroid.
func representative(group []int, embeddings [][]float32) int {
	if len(group) == 1 {
		return group[0]
	}
	members := make([][]float32, len(group))
	for i, idx := range group {
		members[i] = embeddings[idx]
	}
	centroid := vectors.Centroid(members)

	best, bestSim := group[0], -2.0
	for _, idx := range group {
		if sim := vectors.Cosine(embeddings[idx], centroid); sim > bestSim {
			best, bestSim = idx, sim
		}
	}
	return best
}
