package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type sourceStat struct {
	offers   int64
	requests int64
}

var (
	probesOK       int64
	probesNoOffers int64
	fetchFailures  int64
	switchFailures int64
	exportsWritten int64
	warnsVPN       int64
	warnsSource    int64
	errorsVPN      int64
	errorsSource   int64
	sources        sync.Map // map[string]*sourceStat
)

func recordWarn(component string) {
	if strings.Contains(component, "vpn") {
		atomic.AddInt64(&warnsVPN, 1)
	} else if strings.Contains(component, "source") || strings.Contains(component, "reader") {
		atomic.AddInt64(&warnsSource, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "vpn") {
		atomic.AddInt64(&errorsVPN, 1)
	} else if strings.Contains(component, "source") || strings.Contains(component, "reader") {
		atomic.AddInt64(&errorsSource, 1)
	}
}

// RecordProbe tallies the outcome of one country probe for the periodic
// runtime report.
func RecordProbe(status string) {
	switch status {
	case "ok":
		atomic.AddInt64(&probesOK, 1)
	case "no_offers":
		atomic.AddInt64(&probesNoOffers, 1)
	case "fetch_failed":
		atomic.AddInt64(&fetchFailures, 1)
	case "identity_switch_failed":
		atomic.AddInt64(&switchFailures, 1)
	}
}

// RecordOffers tallies offers returned by a source.
func RecordOffers(source string, count int) {
	v, _ := sources.LoadOrStore(source, &sourceStat{})
	st := v.(*sourceStat)
	atomic.AddInt64(&st.requests, 1)
	atomic.AddInt64(&st.offers, int64(count))
}

// RecordExport tallies one completed export file write.
func RecordExport() {
	atomic.AddInt64(&exportsWritten, 1)
}

// StartReport begins periodic logging of system and probe statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()

	sourceData := map[string]map[string]int64{}
	sources.Range(func(k, v any) bool {
		name := k.(string)
		st := v.(*sourceStat)
		sourceData[name] = map[string]int64{
			"requests": atomic.LoadInt64(&st.requests),
			"offers":   atomic.LoadInt64(&st.offers),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	fields := Fields{
		"probes_ok":        atomic.LoadInt64(&probesOK),
		"probes_no_offers": atomic.LoadInt64(&probesNoOffers),
		"fetch_failures":   atomic.LoadInt64(&fetchFailures),
		"switch_failures":  atomic.LoadInt64(&switchFailures),
		"exports_written":  atomic.LoadInt64(&exportsWritten),
		"warns_vpn":        atomic.LoadInt64(&warnsVPN),
		"warns_source":     atomic.LoadInt64(&warnsSource),
		"errors_vpn":       atomic.LoadInt64(&errorsVPN),
		"errors_source":    atomic.LoadInt64(&errorsSource),
		"sources":          sourceData,
		"goroutines":       runtime.NumGoroutine(),
		"cpu_percent":      cpuPct,
		"memory_mb":        int64(memStats.Used) / 1024 / 1024,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("ProbesOK"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&probesOK)))},
		{MetricName: aws.String("ProbesNoOffers"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&probesNoOffers)))},
		{MetricName: aws.String("FetchFailures"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&fetchFailures)))},
		{MetricName: aws.String("SwitchFailures"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&switchFailures)))},
		{MetricName: aws.String("ExportsWritten"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&exportsWritten)))},
		{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
	}

	for name, stats := range sourceData {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String("SourceOffers"),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{{Name: aws.String("Source"), Value: aws.String(name)}},
			Value:      aws.Float64(float64(stats["offers"])),
		})
	}

	publishMetrics(ctx, data)
}
