package sunspec

import (
	"errors"
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

var ErrNotSunSpec = errors.New("could not find a SunSpec smart meter")

type acMeterModbusBlocks struct {
	common  uint16
	acMeter uint16
}

func (blk *acMeterModbusBlocks) AllBlocksDefined() bool {
	return blk.common > 0 && blk.acMeter > 0
}

// ACMeterModbusReader reads a SunSpec int+SF smart meter (models 201 to 204) over Modbus TCP.
type ACMeterModbusReader struct {
	registerReader
	blocks       acMeterModbusBlocks
	manufacturer string
}

// CreateACMeterModbusReader builds a reader for the meter at unit id acMeterAddress.
// When manufacturer is not empty, Open fails for meters reporting another manufacturer.
func CreateACMeterModbusReader(host string, port uint, acMeterAddress uint8, timeout time.Duration,
	manufacturer string, logger *zap.Logger, instrumentation *ModbusInstrument) (*ACMeterModbusReader, error) {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s:%d", host, port),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	// instrumentation
	var inst []ModbusInstrument
	if logger != nil {
		inst = append(inst, debugInstrument(logger.With(zap.String("target", "acMeter"), zap.Uint8("acMeter", acMeterAddress))))
	}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	// set ac meter address
	err = client.SetUnitId(acMeterAddress)
	if err != nil {
		return nil, err
	}
	return &ACMeterModbusReader{
		registerReader: registerReader{
			client:     client,
			instrument: inst,
		},
		manufacturer: manufacturer,
	}, nil
}

func (reader *ACMeterModbusReader) Open() error {
	if err := reader.client.Open(); err != nil {
		return err
	}
	if err := reader.survey(); err != nil {
		reader.client.Close()
		return err
	}
	if reader.manufacturer != "" {
		info, err := reader.GetInfo()
		if err != nil {
			reader.client.Close()
			return err
		}
		if info.Manufacturer != reader.manufacturer {
			reader.client.Close()
			return fmt.Errorf("smart meter manufacturer is %q, expected %q", info.Manufacturer, reader.manufacturer)
		}
	}
	return nil
}

func (reader *ACMeterModbusReader) Close() error {
	return reader.client.Close()
}

func (reader *ACMeterModbusReader) GetInfo() (*ACMeterInfo, error) {
	manufacturer, err := reader.text(reader.blocks.common+2, 16)
	if err != nil {
		return nil, err
	}
	model, err := reader.text(reader.blocks.common+18, 16)
	if err != nil {
		return nil, err
	}
	version, err := reader.text(reader.blocks.common+42, 8)
	if err != nil {
		return nil, err
	}
	serial, err := reader.text(reader.blocks.common+50, 16)
	if err != nil {
		return nil, err
	}

	return &ACMeterInfo{
		Manufacturer: manufacturer,
		Model:        model,
		Version:      version,
		Serial:       serial,
	}, nil
}

// GetCurrentPowerFlowWatt reads W (offset 18) through W_SF (offset 22) in a
// single request so the value and its scale factor come from the same sample.
func (reader *ACMeterModbusReader) GetCurrentPowerFlowWatt() (float64, error) {
	regs, err := reader.registers(reader.blocks.acMeter+18, 5)
	if err != nil {
		return 0, err
	}
	return scaled(regs[0], regs[4]), nil
}

func (reader *ACMeterModbusReader) survey() error {

	// check SunSpec
	str, err := reader.text(SUNSPEC_BASE_ADDR, 2)
	if err != nil {
		return err
	}
	if str != "SunS" {
		return ErrNotSunSpec
	}

	// survey blocks
	blocks := acMeterModbusBlocks{}
	var baseAddr uint16 = SUNSPEC_BASE_ADDR + 2
	for n := 0; n <= 10; n++ {
		block, err := surveyModbusBlock(reader.client, baseAddr)
		if err != nil {
			return err
		}
		if block.isEndBlock() {
			break
		}
		// identify block
		switch {
		case block.id == SUNSPEC_WK_COMMON:
			blocks.common = block.baseAddr
		case block.id >= SUNSPEC_WK_METERS_MIN && block.id <= SUNSPEC_WK_METERS_MAX:
			blocks.acMeter = block.baseAddr
		}
		if blocks.AllBlocksDefined() {
			break
		}
		baseAddr = baseAddr + block.length + 2
	}
	if blocks.AllBlocksDefined() {
		reader.blocks = blocks
		return nil
	}
	return errors.New("could not find all required sunspec blocks (common, ac_meter)")
}

// ensure interface compliance
var _ ACMeterReader = (*ACMeterModbusReader)(nil)
