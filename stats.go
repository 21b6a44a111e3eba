package cxlmemctrl

import "fmt"

// histogramBucketCount is the number of fixed-width buckets every
// histogram in this package accumulates into, in addition to the running
// count/sum used for the mean; each histogram's bucket width is passed
// to newHistogram.
const histogramBucketCount = 20

// histogram accumulates samples into fixed-width buckets and reports
// their mean, a genuine bucketed distribution rather than a running
// mean alone.
type histogram struct {
	count   int64
	sum     float64
	width   float64
	buckets []int64
}

// newHistogram returns a histogram whose buckets each span width units.
func newHistogram(width float64) histogram {
	return histogram{width: width, buckets: make([]int64, histogramBucketCount)}
}

func (h *histogram) add(v float64) {
	h.count++
	h.sum += v

	idx := 0
	if h.width > 0 {
		idx = int(v / h.width)
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(h.buckets) {
		idx = len(h.buckets) - 1
	}
	h.buckets[idx]++
}

func (h *histogram) mean() float64 {
	if h.count == 0 {
		return 0
	}
	return h.sum / float64(h.count)
}

// Buckets returns the histogram's bucket counts, nozero-filtered of
// nothing: callers that want the nonzero/non-nan formatting the stats
// surface calls for filter this themselves.
func (h *histogram) Buckets() []int64 { return h.buckets }

// Stats accumulates the counters and histograms this controller
// reports: totals and byte counts split by class (read, write,
// DRAM-backed read, non-DRAM read), latency histograms for all/read/write
// traffic plus one for the compressed sizes the write-batch compressor
// selects, and the retry/backpressure counters.
type Stats struct {
	TotalReadPackets  int64
	TotalWritePackets int64

	TotalReadBytes  int64
	TotalWriteBytes int64

	TotalDRAMReadPackets    int64
	TotalNonDRAMReadPackets int64
	TotalDRAMReadBytes      int64
	TotalNonDRAMReadBytes   int64

	TotalDRAMReadLatency  float64
	TotalReadCopyLatency  float64
	TotalInterArrivalGap  float64
	TotalCompressionTimes int64

	TotalRetryRdReq    int64
	TotalRetryWrReq    int64
	TotalResendReq     int64
	TotalResendMemResp int64

	allLatencies    histogram
	readLatencies   histogram
	writeLatencies  histogram
	compressedSizes histogram

	AvgLatency      float64
	AvgReadLatency  float64
	AvgWriteLatency float64

	startTime float64
	endTime   float64
}

func newStats() Stats {
	return Stats{
		allLatencies:    newHistogram(50),
		readLatencies:   newHistogram(50),
		writeLatencies:  newHistogram(50),
		compressedSizes: newHistogram(256),
	}
}

// recordLatency feeds one completed packet's latency into the read or
// write histogram, and into the aggregate "all" histogram either way.
func (s *Stats) recordLatency(latency float64, isRead bool) {
	s.allLatencies.add(latency)
	if isRead {
		s.readLatencies.add(latency)
	} else {
		s.writeLatencies.add(latency)
	}
}

// calculateAvgLatency refreshes AvgLatency, AvgReadLatency and
// AvgWriteLatency from the accumulated histograms.
func (s *Stats) calculateAvgLatency() {
	s.AvgReadLatency = s.readLatencies.mean()
	s.AvgWriteLatency = s.writeLatencies.mean()
	s.AvgLatency = s.allLatencies.mean()
}

// AvgReadBWSys reports the average observed read bandwidth in bytes per
// second over the interval [startTime, endTime).
func (s *Stats) AvgReadBWSys() float64 {
	elapsed := s.endTime - s.startTime
	if elapsed <= 0 {
		return 0
	}
	return float64(s.TotalReadBytes) / elapsed
}

// AvgWriteBWSys reports the average observed write bandwidth in bytes
// per second over the interval [startTime, endTime).
func (s *Stats) AvgWriteBWSys() float64 {
	elapsed := s.endTime - s.startTime
	if elapsed <= 0 {
		return 0
	}
	return float64(s.TotalWriteBytes) / elapsed
}

func (s *Stats) String() string {
	return fmt.Sprintf(
		"reads=%d writes=%d dramReads=%d nonDramReads=%d "+
			"avgLatency=%.4f avgReadLatency=%.4f avgWriteLatency=%.4f "+
			"interArrivalGap=%.4f readCopyLatency=%.4f compressions=%d "+
			"retryRdReq=%d retryWrReq=%d resendReq=%d resendMemResp=%d",
		s.TotalReadPackets, s.TotalWritePackets, s.TotalDRAMReadPackets,
		s.TotalNonDRAMReadPackets, s.AvgLatency, s.AvgReadLatency,
		s.AvgWriteLatency, s.TotalInterArrivalGap, s.TotalReadCopyLatency,
		s.TotalCompressionTimes, s.TotalRetryRdReq, s.TotalRetryWrReq,
		s.TotalResendReq, s.TotalResendMemResp)
}
