package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/core/driver"
	"github.com/vkngwrapper/core/mocks"
)

func TestUniqueQueueFamilies(t *testing.T) {
	indices, err := DeriveQueueFamilyIndices([]core1_0.QueueFlags{graphics | transfer, transfer}, func(queueFamily int) (bool, error) {
		return queueFamily == 0, nil
	})
	require.NoError(t, err)

	families, err := uniqueQueueFamilies(indices, []QueueFamily{
		QueueFamilyPresentation,
		QueueFamilyTransfer,
		QueueFamilyGraphics,
	})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, families)

	shared, err := uniqueQueueFamilies(indices, []QueueFamily{QueueFamilyGraphics, QueueFamilyPresentation})
	require.NoError(t, err)
	require.Equal(t, []int{0}, shared)
}

func TestUniqueQueueFamiliesMissingRole(t *testing.T) {
	indices, err := DeriveQueueFamilyIndices([]core1_0.QueueFlags{graphics}, nil)
	require.NoError(t, err)

	_, err = uniqueQueueFamilies(indices, []QueueFamily{QueueFamilyGraphics, QueueFamilyPresentation})
	require.ErrorIs(t, err, ErrQueueFamilyNotSupported)
	require.Contains(t, err.Error(), QueueFamilyPresentation.String())
}

func TestQueueForUnrequestedRolePanics(t *testing.T) {
	device := &LogicalDevice{queues: map[QueueFamily]core1_0.Queue{}}
	require.Panics(t, func() { device.Queue(QueueFamilyCompute) })
}

func TestNewLogicalDeviceSharedFamily(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	indices, err := DeriveQueueFamilyIndices([]core1_0.QueueFlags{graphics | transfer, transfer}, func(queueFamily int) (bool, error) {
		return queueFamily == 0, nil
	})
	require.NoError(t, err)

	physicalHandle := mocks.NewMockPhysicalDevice(ctrl)
	physical := &PhysicalDevice{handle: physicalHandle, name: "mock", queueFamilies: indices}

	deviceHandle := mocks.NewMockDevice(ctrl)
	physicalHandle.EXPECT().CreateDevice(nil, gomock.Any()).DoAndReturn(
		func(allocation *driver.AllocationCallbacks, options core1_0.DeviceCreateInfo) (core1_0.Device, common.VkResult, error) {
			require.Equal(t, []core1_0.DeviceQueueCreateInfo{
				{QueueFamilyIndex: 0, QueuePriorities: []float32{1.0}},
			}, options.QueueCreateInfos)
			return deviceHandle, core1_0.VKSuccess, nil
		})

	queue := mocks.NewMockQueue(ctrl)
	deviceHandle.EXPECT().GetQueue(0, 0).Return(queue).Times(2)

	device, err := NewLogicalDevice(physical, []QueueFamily{QueueFamilyGraphics, QueueFamilyPresentation})
	require.NoError(t, err)
	require.Same(t, queue, device.Queue(QueueFamilyGraphics))
	require.Same(t, queue, device.Queue(QueueFamilyPresentation))
	require.Panics(t, func() { device.Queue(QueueFamilyTransfer) })

	deviceHandle.EXPECT().WaitIdle().Return(core1_0.VKSuccess, nil)
	deviceHandle.EXPECT().Destroy(nil)
	device.Release()
}

func TestNewLogicalDeviceDedicatedTransfer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	indices, err := DeriveQueueFamilyIndices([]core1_0.QueueFlags{graphics | transfer, transfer}, func(queueFamily int) (bool, error) {
		return queueFamily == 0, nil
	})
	require.NoError(t, err)

	physicalHandle := mocks.NewMockPhysicalDevice(ctrl)
	physical := &PhysicalDevice{handle: physicalHandle, queueFamilies: indices}

	deviceHandle := mocks.NewMockDevice(ctrl)
	physicalHandle.EXPECT().CreateDevice(nil, gomock.Any()).DoAndReturn(
		func(allocation *driver.AllocationCallbacks, options core1_0.DeviceCreateInfo) (core1_0.Device, common.VkResult, error) {
			require.Len(t, options.QueueCreateInfos, 2)
			require.Equal(t, 0, options.QueueCreateInfos[0].QueueFamilyIndex)
			require.Equal(t, 1, options.QueueCreateInfos[1].QueueFamilyIndex)
			return deviceHandle, core1_0.VKSuccess, nil
		})

	shared := mocks.NewMockQueue(ctrl)
	dedicated := mocks.NewMockQueue(ctrl)
	deviceHandle.EXPECT().GetQueue(0, 0).Return(shared).Times(2)
	deviceHandle.EXPECT().GetQueue(1, 0).Return(dedicated)

	device, err := NewLogicalDevice(physical, []QueueFamily{QueueFamilyGraphics, QueueFamilyPresentation, QueueFamilyTransfer})
	require.NoError(t, err)
	require.Same(t, shared, device.Queue(QueueFamilyPresentation))
	require.Same(t, dedicated, device.Queue(QueueFamilyTransfer))

	deviceHandle.EXPECT().WaitIdle().Return(core1_0.VKSuccess, nil)
	deviceHandle.EXPECT().Destroy(nil)
	device.Release()
}

func TestNewLogicalDeviceFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	indices, err := DeriveQueueFamilyIndices([]core1_0.QueueFlags{graphics}, nil)
	require.NoError(t, err)

	physicalHandle := mocks.NewMockPhysicalDevice(ctrl)
	physical := &PhysicalDevice{handle: physicalHandle, queueFamilies: indices}
	physicalHandle.EXPECT().CreateDevice(nil, gomock.Any()).Return(nil, core1_0.VKErrorFeatureNotPresent, errors.New("no device"))

	_, err = NewLogicalDevice(physical, []QueueFamily{QueueFamilyGraphics})
	require.True(t, IsOperation(err, OpCreateDevice))
}
