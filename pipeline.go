package ligament

import "sync"

// task splits data in contiguous chunks, one per worker, and blocks until every chunk is done.
// fn receives the index of the item so workers can write results without locking.
func task[T any](workersCount int, data []T, fn func(i int, data T)) {
	dataSize := len(data)
	if dataSize == 0 {
		return
	}
	workersCount = max(1, min(workersCount, dataSize))
	if workersCount == 1 {
		for i, d := range data {
			fn(i, d)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := (dataSize + workersCount - 1) / workersCount

	for workerID := 0; workerID < workersCount; workerID++ {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i, data[i])
			}
		}(workerID*chunkSize, min((workerID+1)*chunkSize, dataSize))
	}
	wg.Wait()
}
