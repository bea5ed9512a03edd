package notify

import (
	"fmt"
	"time"

	"volume-tracker/src/logger"
	"volume-tracker/src/market"
	"volume-tracker/src/models"

	"github.com/go-resty/resty/v2"
)

// -----------------------------------------------------------------------------
// Client publishes computed data to the hub's /pub endpoint, which fans it
// out to websocket subscribers per channel. Delivery is fire-and-forget:
// failures are logged and never reach the computation path.
// -----------------------------------------------------------------------------

const datetimeLayout = "2006-01-02 15:04"

type Client struct {
	client *resty.Client
	log    *logger.Logger
}

// -----------------------------------------------------------------------------

func NewClient(cfg models.MPushConfig, log *logger.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(time.Duration(cfg.Timeout) * time.Second).
		SetHeader("Content-Type", "application/json")

	return &Client{client: client, log: log.Named("notify")}
}

// -----------------------------------------------------------------------------

func (c *Client) publish(channel string, payload interface{}) {
	resp, err := c.client.R().
		SetQueryParam("channel", channel).
		SetBody(payload).
		Post("")
	if err != nil {
		c.log.Warning("publish to %s failed: %v", channel, err)
		return
	}
	if resp.IsError() {
		c.log.Warning("publish to %s returned status %d", channel, resp.StatusCode())
	}
}

// -----------------------------------------------------------------------------

func (c *Client) OnMinuteComputed(minute models.MMinute, displayName string) {
	datetime := minute.Time.In(market.Location()).Format(datetimeLayout)
	slope := minute.Slope
	volume := minute.CumulativeVolume

	c.publish("all", models.MChartPoint{
		All:      true,
		PlotName: displayName,
		Datetime: datetime,
		Volume:   &volume,
	})

	c.publish("stock_"+minute.Symbol, models.MChartPoint{
		PlotName: displayName,
		Datetime: datetime,
		Value:    minute.Last,
		Volume:   &volume,
		Slope:    &slope,
	})
}

// -----------------------------------------------------------------------------

func (c *Client) OnRollingCorrelation(roll models.MRollingCorrelation) {
	name := "Volume"
	if roll.DataType == models.DataTypeSlope {
		name = "Slope"
	}
	value := roll.Value

	c.publish("stock_"+roll.Symbol, models.MChartPoint{
		PlotName: fmt.Sprintf("%s Correlation (%dm)", name, roll.Window),
		Datetime: roll.Time.In(market.Location()).Format(datetimeLayout),
		Value:    &value,
	})
}

// -----------------------------------------------------------------------------

func (c *Client) OnCorrelationBatchReady(groupKey string, table models.MCorrelationTable) {
	c.publish("correlations_"+groupKey, table)
}

// -----------------------------------------------------------------------------

func (c *Client) OnSlopeTableReady(groupKey string, table models.MSlopeTable) {
	c.publish("slope_table_"+groupKey, table)
}
