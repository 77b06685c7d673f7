// Hand-written in the shape of MockGen output; not generated by mockgen.
// Source: github.com/ground-x/coreclient/filters (interfaces: ChainSource,PendingSource)

package filters

import (
	reflect "reflect"

	gomock "github.com/golang/mock/gomock"

	types "github.com/ground-x/coreclient/blockchain/types"
	common "github.com/ground-x/coreclient/common"
)

// MockChainSource is a mock of the ChainSource interface.
type MockChainSource struct {
	ctrl     *gomock.Controller
	recorder *MockChainSourceMockRecorder
}

type MockChainSourceMockRecorder struct {
	mock *MockChainSource
}

func NewMockChainSource(ctrl *gomock.Controller) *MockChainSource {
	mock := &MockChainSource{ctrl: ctrl}
	mock.recorder = &MockChainSourceMockRecorder{mock}
	return mock
}

func (m *MockChainSource) EXPECT() *MockChainSourceMockRecorder {
	return m.recorder
}

func (m *MockChainSource) Number() uint64 {
	ret := m.ctrl.Call(m, "Number")
	ret0, _ := ret[0].(uint64)
	return ret0
}

func (mr *MockChainSourceMockRecorder) Number() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Number", reflect.TypeOf((*MockChainSource)(nil).Number))
}

func (m *MockChainSource) NumberHash(n uint64) common.Hash {
	ret := m.ctrl.Call(m, "NumberHash", n)
	ret0, _ := ret[0].(common.Hash)
	return ret0
}

func (mr *MockChainSourceMockRecorder) NumberHash(n interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "NumberHash", reflect.TypeOf((*MockChainSource)(nil).NumberHash), n)
}

func (m *MockChainSource) Block(hash common.Hash) (*types.Block, error) {
	ret := m.ctrl.Call(m, "Block", hash)
	ret0, _ := ret[0].(*types.Block)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockChainSourceMockRecorder) Block(hash interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Block", reflect.TypeOf((*MockChainSource)(nil).Block), hash)
}

func (m *MockChainSource) Blooms(hash common.Hash) []common.Bloom {
	ret := m.ctrl.Call(m, "Blooms", hash)
	ret0, _ := ret[0].([]common.Bloom)
	return ret0
}

func (mr *MockChainSourceMockRecorder) Blooms(hash interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Blooms", reflect.TypeOf((*MockChainSource)(nil).Blooms), hash)
}

func (m *MockChainSource) Traces(hash common.Hash) []*types.Manifest {
	ret := m.ctrl.Call(m, "Traces", hash)
	ret0, _ := ret[0].([]*types.Manifest)
	return ret0
}

func (mr *MockChainSourceMockRecorder) Traces(hash interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Traces", reflect.TypeOf((*MockChainSource)(nil).Traces), hash)
}

// MockPendingSource is a mock of the PendingSource interface.
type MockPendingSource struct {
	ctrl     *gomock.Controller
	recorder *MockPendingSourceMockRecorder
}

type MockPendingSourceMockRecorder struct {
	mock *MockPendingSource
}

func NewMockPendingSource(ctrl *gomock.Controller) *MockPendingSource {
	mock := &MockPendingSource{ctrl: ctrl}
	mock.recorder = &MockPendingSourceMockRecorder{mock}
	return mock
}

func (m *MockPendingSource) EXPECT() *MockPendingSourceMockRecorder {
	return m.recorder
}

func (m *MockPendingSource) Pending() []*types.Transaction {
	ret := m.ctrl.Call(m, "Pending")
	ret0, _ := ret[0].([]*types.Transaction)
	return ret0
}

func (mr *MockPendingSourceMockRecorder) Pending() *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Pending", reflect.TypeOf((*MockPendingSource)(nil).Pending))
}

func (m *MockPendingSource) Bloom(i int) common.Bloom {
	ret := m.ctrl.Call(m, "Bloom", i)
	ret0, _ := ret[0].(common.Bloom)
	return ret0
}

func (mr *MockPendingSourceMockRecorder) Bloom(i interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Bloom", reflect.TypeOf((*MockPendingSource)(nil).Bloom), i)
}

func (m *MockPendingSource) PendingDiff(i int) types.StateDiff {
	ret := m.ctrl.Call(m, "PendingDiff", i)
	ret0, _ := ret[0].(types.StateDiff)
	return ret0
}

func (mr *MockPendingSourceMockRecorder) PendingDiff(i interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PendingDiff", reflect.TypeOf((*MockPendingSource)(nil).PendingDiff), i)
}

func (m *MockPendingSource) ChangesFromPending(i int) *types.Manifest {
	ret := m.ctrl.Call(m, "ChangesFromPending", i)
	ret0, _ := ret[0].(*types.Manifest)
	return ret0
}

func (mr *MockPendingSourceMockRecorder) ChangesFromPending(i interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ChangesFromPending", reflect.TypeOf((*MockPendingSource)(nil).ChangesFromPending), i)
}
