package sunspec

import (
	"github.com/simonvetter/modbus"
)

const (
	SUNSPEC_BASE_ADDR     = 40000
	SUNSPEC_WK_COMMON     = 1
	SUNSPEC_WK_METERS_MIN = 201
	SUNSPEC_WK_METERS_MAX = 204
	SUNSPEC_WK_END        = 0xFFFF
)

type modbusBlock struct {
	id       uint16
	baseAddr uint16
	length   uint16
}

func (block *modbusBlock) isEndBlock() bool {
	return block.id == SUNSPEC_WK_END
}

func surveyModbusBlock(client *modbus.ModbusClient, baseAddr uint16) (*modbusBlock, error) {
	header, err := client.ReadRegisters(baseAddr, 2, modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, err
	}
	return &modbusBlock{
		id:       header[0],
		length:   header[1],
		baseAddr: baseAddr,
	}, nil
}
