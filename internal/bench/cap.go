package bench

// CapCorpus returns a copy of dataset whose corpus has at most maxCorpus
// entries, preserving every corpus id referenced by a qrel with a
// positive relevance score (ground-truth preservation) and filling any
// remaining slots with the next non-relevant entries in dataset order.
// When more positive ids are referenced than maxCorpus allows, all of
// them are kept and the result exceeds maxCorpus. Queries are then
// narrowed to those with at least one positive corpus id still present.
// maxCorpus <= 0 or >= len(corpus) is a no-op.
func CapCorpus(dataset *Dataset, maxCorpus int) *Dataset {
	if maxCorpus <= 0 || maxCorpus >= len(dataset.Corpus) {
		return dataset
	}

	required := requiredCorpusIDs(dataset.Qrels)

	var kept []CorpusItem
	keptSet := make(map[string]bool, maxCorpus)
	for _, item := range dataset.Corpus {
		if required[item.ID] {
			kept = append(kept, item)
			keptSet[item.ID] = true
		}
	}
	for _, item := range dataset.Corpus {
		if len(kept) >= maxCorpus {
			break
		}
		if keptSet[item.ID] {
			continue
		}
		kept = append(kept, item)
		keptSet[item.ID] = true
	}

	return &Dataset{
		Corpus:  kept,
		Queries: filterQueriesWithPositives(dataset.Queries, dataset.Qrels, keptSet),
		Qrels:   dataset.Qrels,
	}
}

// CapQueries truncates queries to at most maxQueries entries, preserving
// order. maxQueries <= 0 is a no-op, applied after any filtering.
func CapQueries(queries []Query, maxQueries int) []Query {
	if maxQueries <= 0 || maxQueries >= len(queries) {
		return queries
	}
	return queries[:maxQueries]
}

func requiredCorpusIDs(qrels Qrels) map[string]bool {
	required := map[string]bool{}
	for _, byCorpus := range qrels {
		for corpusID, score := range byCorpus {
			if score > 0 {
				required[corpusID] = true
			}
		}
	}
	return required
}

// filterQueriesWithPositives keeps only queries that still have at least
// one positive-relevance corpus id present in keptSet.
func filterQueriesWithPositives(queries []Query, qrels Qrels, keptSet map[string]bool) []Query {
	var kept []Query
	for _, q := range queries {
		byCorpus := qrels[q.ID]
		hasPositive := false
		for corpusID, score := range byCorpus {
			if score > 0 && keptSet[corpusID] {
				hasPositive = true
				break
			}
		}
		if hasPositive {
			kept = append(kept, q)
		}
	}
	return kept
}
